// Package lease 是邮箱租期时间运算的唯一来源。
//
// 创建、续期与回收都必须委托这里的函数计算过期时间，避免各处
// 独立实现造成语义漂移。
package lease

import "time"

// 允许的租期时长（分钟）。其他请求值一律回退到 DefaultMinutes，
// 作为针对无限租期请求的安全钳制。
const (
	DefaultMinutes = 10
	MediumMinutes  = 30
	LongMinutes    = 60

	// 续期固定把剩余时间重置为 10 分钟（绝对重置，不叠加）。
	RefreshMinutes = 10
)

// NormalizeDuration 把请求的时长钳制到允许的枚举集 {10, 30, 60}。
func NormalizeDuration(minutes int) int {
	switch minutes {
	case DefaultMinutes, MediumMinutes, LongMinutes:
		return minutes
	default:
		return DefaultMinutes
	}
}

// ComputeExpiry 计算从 now 起持续 minutes 分钟的过期时间。
func ComputeExpiry(now time.Time, minutes int) time.Time {
	return now.Add(time.Duration(minutes) * time.Minute)
}

// RemainingSeconds 返回距离过期的剩余整秒数，永不为负。
func RemainingSeconds(expiresAt, now time.Time) int64 {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int64(diff / time.Second)
}

// IsExpired 判断在 now 时刻租期是否已经结束。
func IsExpired(expiresAt, now time.Time) bool {
	return expiresAt.Before(now)
}
