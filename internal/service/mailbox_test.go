package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapmail/backend/internal/address"
	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/storage"
	"snapmail/backend/internal/storage/memory"
)

func newMailboxService(t *testing.T) (*MailboxService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	generator := address.NewGenerator("snapmail.temp")
	return NewMailboxService(store, generator, zap.NewNop()), store
}

func TestMailboxServiceCreate(t *testing.T) {
	svc, _ := newMailboxService(t)

	t.Run("随机地址创建成功", func(t *testing.T) {
		mb, err := svc.Create(CreateMailboxInput{DurationMinutes: 10})
		require.NoError(t, err)

		assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{10}@snapmail\.temp$`), mb.Address)
		assert.Equal(t, 10, mb.DurationMinutes)
		assert.WithinDuration(t, mb.CreatedAt.Add(10*time.Minute), mb.ExpiresAt, time.Second)
	})

	t.Run("非法时长回落到最短档", func(t *testing.T) {
		for _, minutes := range []int{0, -5, 45, 999} {
			mb, err := svc.Create(CreateMailboxInput{DurationMinutes: minutes})
			require.NoError(t, err)
			assert.Equal(t, 10, mb.DurationMinutes)
		}
	})

	t.Run("合法时长原样采用", func(t *testing.T) {
		for _, minutes := range []int{10, 30, 60} {
			mb, err := svc.Create(CreateMailboxInput{DurationMinutes: minutes})
			require.NoError(t, err)
			assert.Equal(t, minutes, mb.DurationMinutes)
			assert.WithinDuration(t, mb.CreatedAt.Add(time.Duration(minutes)*time.Minute), mb.ExpiresAt, time.Second)
		}
	})

	t.Run("自定义前缀被采用", func(t *testing.T) {
		mb, err := svc.Create(CreateMailboxInput{Prefix: "My.Box!", DurationMinutes: 30})
		require.NoError(t, err)
		assert.Equal(t, "my.box@snapmail.temp", mb.Address)
	})

	t.Run("自定义前缀冲突返回 ErrAddressTaken", func(t *testing.T) {
		_, err := svc.Create(CreateMailboxInput{Prefix: "taken-box", DurationMinutes: 10})
		require.NoError(t, err)

		_, err = svc.Create(CreateMailboxInput{Prefix: "taken-box", DurationMinutes: 10})
		assert.ErrorIs(t, err, ErrAddressTaken)
	})

	t.Run("过短前缀退回随机生成", func(t *testing.T) {
		mb, err := svc.Create(CreateMailboxInput{Prefix: "a!", DurationMinutes: 10})
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{10}@`), mb.Address)
	})
}

// collidingRepo 前 N 次创建都返回地址冲突，用于验证重试逻辑。
type collidingRepo struct {
	storage.MailboxRepository
	failures int
	attempts int
}

func (r *collidingRepo) CreateMailbox(mailbox *domain.Mailbox) error {
	r.attempts++
	if r.attempts <= r.failures {
		return storage.ErrAddressTaken
	}
	return r.MailboxRepository.CreateMailbox(mailbox)
}

func TestMailboxServiceCreateRetry(t *testing.T) {
	t.Run("随机地址冲突时换地址重试", func(t *testing.T) {
		repo := &collidingRepo{MailboxRepository: memory.NewStore(), failures: 2}
		svc := NewMailboxService(repo, address.NewGenerator("snapmail.temp"), zap.NewNop())

		mb, err := svc.Create(CreateMailboxInput{DurationMinutes: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, repo.attempts)
		assert.NotEmpty(t, mb.Address)
	})

	t.Run("连续冲突超过上限返回错误", func(t *testing.T) {
		repo := &collidingRepo{MailboxRepository: memory.NewStore(), failures: 10}
		svc := NewMailboxService(repo, address.NewGenerator("snapmail.temp"), zap.NewNop())

		_, err := svc.Create(CreateMailboxInput{DurationMinutes: 10})
		assert.ErrorIs(t, err, ErrAddressTaken)
		assert.Equal(t, 3, repo.attempts)
	})

	t.Run("自定义前缀冲突不重试", func(t *testing.T) {
		repo := &collidingRepo{MailboxRepository: memory.NewStore(), failures: 1}
		svc := NewMailboxService(repo, address.NewGenerator("snapmail.temp"), zap.NewNop())

		_, err := svc.Create(CreateMailboxInput{Prefix: "mybox", DurationMinutes: 10})
		assert.ErrorIs(t, err, ErrAddressTaken)
		assert.Equal(t, 1, repo.attempts)
	})
}

func TestMailboxServiceRefresh(t *testing.T) {
	svc, _ := newMailboxService(t)

	t.Run("续期把剩余时间重置为固定值", func(t *testing.T) {
		mb, err := svc.Create(CreateMailboxInput{DurationMinutes: 60})
		require.NoError(t, err)

		refreshed, err := svc.Refresh(mb.Address)
		require.NoError(t, err)

		// 从 60 分钟档续期后剩余时间反而变短：重置，不是累加
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), refreshed.ExpiresAt, time.Second)
		assert.True(t, refreshed.ExpiresAt.Before(mb.ExpiresAt))
	})

	t.Run("续期不存在的邮箱返回 ErrMailboxNotFound", func(t *testing.T) {
		_, err := svc.Refresh("nobody@snapmail.temp")
		assert.ErrorIs(t, err, ErrMailboxNotFound)
	})
}

func TestMailboxServiceDelete(t *testing.T) {
	svc, _ := newMailboxService(t)

	mb, err := svc.Create(CreateMailboxInput{DurationMinutes: 10})
	require.NoError(t, err)

	t.Run("删除后邮箱不可见", func(t *testing.T) {
		require.NoError(t, svc.Delete(mb.Address))

		_, err := svc.Get(mb.Address)
		assert.ErrorIs(t, err, ErrMailboxNotFound)
	})

	t.Run("重复删除仍然成功", func(t *testing.T) {
		assert.NoError(t, svc.Delete(mb.Address))
	})
}
