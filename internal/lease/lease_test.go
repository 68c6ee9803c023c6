package lease

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDuration(t *testing.T) {
	t.Run("枚举集内的时长保持不变", func(t *testing.T) {
		assert.Equal(t, 10, NormalizeDuration(10))
		assert.Equal(t, 30, NormalizeDuration(30))
		assert.Equal(t, 60, NormalizeDuration(60))
	})

	t.Run("枚举集外的时长回退到默认值", func(t *testing.T) {
		assert.Equal(t, 10, NormalizeDuration(0))
		assert.Equal(t, 10, NormalizeDuration(15))
		assert.Equal(t, 10, NormalizeDuration(-5))
		assert.Equal(t, 10, NormalizeDuration(1440))
	})
}

func TestComputeExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("过期时间等于起点加时长", func(t *testing.T) {
		expiry := ComputeExpiry(now, 30)
		assert.Equal(t, now.Add(30*time.Minute), expiry)
	})
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("创建时刻剩余秒数等于完整时长", func(t *testing.T) {
		expiry := ComputeExpiry(now, 30)
		assert.Equal(t, int64(30*60), RemainingSeconds(expiry, now))
	})

	t.Run("不足整秒的部分向下取整", func(t *testing.T) {
		expiry := now.Add(90*time.Second + 500*time.Millisecond)
		assert.Equal(t, int64(90), RemainingSeconds(expiry, now))
	})

	t.Run("过期之后剩余永远是零而不是负数", func(t *testing.T) {
		expiry := now.Add(-time.Minute)
		assert.Equal(t, int64(0), RemainingSeconds(expiry, now))
		assert.Equal(t, int64(0), RemainingSeconds(expiry, now.Add(time.Hour)))
	})
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("过期时间早于当前时刻即为过期", func(t *testing.T) {
		assert.True(t, IsExpired(now.Add(-time.Second), now))
		assert.False(t, IsExpired(now.Add(time.Second), now))
	})

	t.Run("恰好等于当前时刻不算过期", func(t *testing.T) {
		assert.False(t, IsExpired(now, now))
	})

	t.Run("续期按绝对时间重置而不是叠加", func(t *testing.T) {
		created := now
		// 10 分钟邮箱在第 5 分钟续期
		refreshAt := created.Add(5 * time.Minute)
		newExpiry := ComputeExpiry(refreshAt, RefreshMinutes)
		assert.Equal(t, created.Add(15*time.Minute), newExpiry)
	})
}
