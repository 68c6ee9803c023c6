package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapmail/backend/internal/pool"
	"snapmail/backend/internal/storage"
	"snapmail/backend/internal/storage/memory"
)

func TestReclaimServiceSweepOnce(t *testing.T) {
	t.Run("过期邮箱及邮件被回收，活跃邮箱保留", func(t *testing.T) {
		store := memory.NewStore()
		live := "live@snapmail.temp"
		seedMailbox(t, store, live, 10*time.Minute)
		liveMsg := seedMessage(t, store, live, "keep me", time.Now())

		expired := "dead@snapmail.temp"
		seedMailbox(t, store, expired, -time.Minute)
		deadMsg := seedMessage(t, store, expired, "reclaim me", time.Now())

		svc := NewReclaimService(store, time.Minute, 100, nil, nil, zap.NewNop())
		reclaimed := svc.SweepOnce(context.Background())
		assert.Equal(t, 1, reclaimed)

		_, err := store.GetActiveMailbox(live)
		assert.NoError(t, err)
		_, err = store.GetMessage(liveMsg.ID)
		assert.NoError(t, err)

		_, err = store.GetMessage(deadMsg.ID)
		assert.ErrorIs(t, err, storage.ErrMessageNotFound)

		expiredLeft, err := store.ListExpiredAddresses(time.Now(), 100)
		require.NoError(t, err)
		assert.Empty(t, expiredLeft)
	})

	t.Run("单轮回收受批量上限约束", func(t *testing.T) {
		store := memory.NewStore()
		for i := 0; i < 5; i++ {
			seedMailbox(t, store, fmt.Sprintf("old%d@snapmail.temp", i), -time.Minute)
		}

		svc := NewReclaimService(store, time.Minute, 2, nil, nil, zap.NewNop())
		assert.Equal(t, 2, svc.SweepOnce(context.Background()))

		// 剩余的留给后续轮次
		left, err := store.ListExpiredAddresses(time.Now(), 100)
		require.NoError(t, err)
		assert.Len(t, left, 3)

		assert.Equal(t, 2, svc.SweepOnce(context.Background()))
		assert.Equal(t, 1, svc.SweepOnce(context.Background()))
		assert.Equal(t, 0, svc.SweepOnce(context.Background()))
	})

	t.Run("通过协程池并发删除", func(t *testing.T) {
		store := memory.NewStore()
		for i := 0; i < 20; i++ {
			seedMailbox(t, store, fmt.Sprintf("bulk%d@snapmail.temp", i), -time.Minute)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		workers := pool.NewWorkerPool(4, 32, zap.NewNop())
		workers.Start(ctx)
		defer workers.Stop()

		svc := NewReclaimService(store, time.Minute, 100, workers, nil, zap.NewNop())
		assert.Equal(t, 20, svc.SweepOnce(ctx))
	})

	t.Run("没有过期邮箱时本轮为空操作", func(t *testing.T) {
		store := memory.NewStore()
		seedMailbox(t, store, "fresh@snapmail.temp", 10*time.Minute)

		svc := NewReclaimService(store, time.Minute, 100, nil, nil, zap.NewNop())
		assert.Equal(t, 0, svc.SweepOnce(context.Background()))
	})
}

func TestReclaimServiceRun(t *testing.T) {
	t.Run("上下文取消后循环退出", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewReclaimService(store, 10*time.Millisecond, 100, nil, nil, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			svc.Run(ctx)
			close(done)
		}()

		time.Sleep(30 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("reclaim loop did not stop after cancellation")
		}
	})
}
