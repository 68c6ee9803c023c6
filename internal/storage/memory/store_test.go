package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/storage"
)

func newTestMailbox(address string, ttl time.Duration) *domain.Mailbox {
	now := time.Now()
	return &domain.Mailbox{
		Address:         address,
		LocalPart:       "test",
		Domain:          "snapmail.temp",
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		DurationMinutes: 10,
		Active:          true,
	}
}

func newTestMessage(owner string, receivedAt time.Time) *domain.Message {
	return &domain.Message{
		ID:           uuid.NewString(),
		OwnerAddress: owner,
		Sender:       "alice@example.com",
		Subject:      "hello",
		BodyText:     "hello world",
		ReceivedAt:   receivedAt,
	}
}

func TestStoreMailboxLifecycle(t *testing.T) {
	store := NewStore()

	t.Run("创建并按地址读取邮箱", func(t *testing.T) {
		mb := newTestMailbox("abc@snapmail.temp", 10*time.Minute)
		require.NoError(t, store.CreateMailbox(mb))

		got, err := store.GetActiveMailbox("abc@snapmail.temp")
		require.NoError(t, err)
		assert.Equal(t, mb.Address, got.Address)
		assert.Equal(t, 10, got.DurationMinutes)
	})

	t.Run("活跃地址冲突返回 ErrAddressTaken", func(t *testing.T) {
		err := store.CreateMailbox(newTestMailbox("abc@snapmail.temp", 10*time.Minute))
		assert.ErrorIs(t, err, storage.ErrAddressTaken)
	})

	t.Run("过期地址可以被重新占用", func(t *testing.T) {
		expired := newTestMailbox("stale@snapmail.temp", -time.Minute)
		require.NoError(t, store.CreateMailbox(expired))

		fresh := newTestMailbox("stale@snapmail.temp", 10*time.Minute)
		require.NoError(t, store.CreateMailbox(fresh))

		got, err := store.GetActiveMailbox("stale@snapmail.temp")
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.After(time.Now()))
	})

	t.Run("过期邮箱对查询不可见", func(t *testing.T) {
		require.NoError(t, store.CreateMailbox(newTestMailbox("gone@snapmail.temp", -time.Second)))

		_, err := store.GetActiveMailbox("gone@snapmail.temp")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("续期重置过期时间", func(t *testing.T) {
		newExpiry := time.Now().Add(10 * time.Minute)
		got, err := store.ExtendMailbox("abc@snapmail.temp", newExpiry)
		require.NoError(t, err)
		assert.WithinDuration(t, newExpiry, got.ExpiresAt, time.Millisecond)
	})

	t.Run("删除是幂等的", func(t *testing.T) {
		require.NoError(t, store.DeleteMailbox("abc@snapmail.temp"))
		require.NoError(t, store.DeleteMailbox("abc@snapmail.temp"))

		_, err := store.GetActiveMailbox("abc@snapmail.temp")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestStoreListExpiredAddresses(t *testing.T) {
	store := NewStore()
	now := time.Now()

	require.NoError(t, store.CreateMailbox(newTestMailbox("live@snapmail.temp", 10*time.Minute)))
	for _, addr := range []string{"a@snapmail.temp", "b@snapmail.temp", "c@snapmail.temp"} {
		require.NoError(t, store.CreateMailbox(newTestMailbox(addr, -time.Minute)))
	}

	t.Run("只返回已过期的地址", func(t *testing.T) {
		expired, err := store.ListExpiredAddresses(now, 100)
		require.NoError(t, err)
		assert.Len(t, expired, 3)
		assert.NotContains(t, expired, "live@snapmail.temp")
	})

	t.Run("批量上限生效", func(t *testing.T) {
		expired, err := store.ListExpiredAddresses(now, 2)
		require.NoError(t, err)
		assert.Len(t, expired, 2)
	})
}

func TestStoreMessages(t *testing.T) {
	store := NewStore()
	owner := "inbox@snapmail.temp"
	require.NoError(t, store.CreateMailbox(newTestMailbox(owner, 10*time.Minute)))

	base := time.Now()
	oldest := newTestMessage(owner, base.Add(-2*time.Minute))
	middle := newTestMessage(owner, base.Add(-time.Minute))
	newest := newTestMessage(owner, base)
	for _, msg := range []*domain.Message{oldest, middle, newest} {
		require.NoError(t, store.SaveMessage(msg))
	}

	t.Run("列表按接收时间倒序", func(t *testing.T) {
		msgs, err := store.ListMessages(owner, 50)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, newest.ID, msgs[0].ID)
		assert.Equal(t, oldest.ID, msgs[2].ID)
	})

	t.Run("列表上限生效", func(t *testing.T) {
		msgs, err := store.ListMessages(owner, 2)
		require.NoError(t, err)
		assert.Len(t, msgs, 2)
	})

	t.Run("按全局 ID 获取邮件", func(t *testing.T) {
		got, err := store.GetMessage(middle.ID)
		require.NoError(t, err)
		assert.Equal(t, middle.Subject, got.Subject)
		assert.False(t, got.IsRead)
	})

	t.Run("标记已读后持久生效", func(t *testing.T) {
		require.NoError(t, store.MarkMessageRead(middle.ID))

		got, err := store.GetMessage(middle.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
	})

	t.Run("不存在的邮件返回 ErrMessageNotFound", func(t *testing.T) {
		_, err := store.GetMessage(uuid.NewString())
		assert.ErrorIs(t, err, storage.ErrMessageNotFound)
	})

	t.Run("按属主批量删除邮件", func(t *testing.T) {
		count, err := store.DeleteMessagesByOwners([]string{owner, "missing@snapmail.temp"})
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		msgs, err := store.ListMessages(owner, 50)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		_, err = store.GetMessage(newest.ID)
		assert.ErrorIs(t, err, storage.ErrMessageNotFound)
	})
}

func TestStoreDeleteMailboxRemovesMessages(t *testing.T) {
	store := NewStore()
	owner := "wipe@snapmail.temp"
	require.NoError(t, store.CreateMailbox(newTestMailbox(owner, 10*time.Minute)))

	msg := newTestMessage(owner, time.Now())
	require.NoError(t, store.SaveMessage(msg))

	require.NoError(t, store.DeleteMailbox(owner))

	_, err := store.GetMessage(msg.ID)
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestStoreRateLimit(t *testing.T) {
	store := NewStore()

	t.Run("窗口内计数递增", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			count, err := store.IncrementRateLimit("create:1.2.3.4", time.Hour)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}

		count, err := store.GetRateLimit("create:1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("窗口过期后重新计数", func(t *testing.T) {
		_, err := store.IncrementRateLimit("short", time.Nanosecond)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)

		count, err := store.IncrementRateLimit("short", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
