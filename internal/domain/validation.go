package domain

import (
	"errors"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidAddress = errors.New("invalid address format")
	ErrAddressTooLong = errors.New("address too long")
)

// 字段长度与内容上限
const (
	// 地址相关字段统一限制在 255 字符以内
	MaxAddressLength = 255

	// Subject 超出部分静默截断
	MaxSubjectLength = 500

	// 正文（text 与 html 各自）超出部分静默截断
	MaxBodyLength = 100000

	// 列表摘要展示的正文预览长度
	PreviewLength = 100

	// 自定义前缀净化后的最大长度
	MaxPrefixLength = 20

	// 净化后的前缀短于该值时退回随机生成
	MinPrefixLength = 3
)

// 正则表达式
var (
	// 前缀允许字符白名单之外的内容
	prefixStripRegex = regexp.MustCompile(`[^a-z0-9._-]`)

	// 基本的 local@domain 形状检查
	addressRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// AddressValidator 邮箱地址验证器：前缀净化与收件人形状检查的
// 唯一入口，避免各调用点各自用临时正则重复验证。
type AddressValidator struct{}

// NewAddressValidator 创建地址验证器
func NewAddressValidator() *AddressValidator {
	return &AddressValidator{}
}

// SanitizePrefix 净化用户提供的前缀。
//
// 小写化后剔除 [a-z0-9._-] 之外的字符并截断到 MaxPrefixLength。
// 净化结果短于 MinPrefixLength 时返回空串，调用方据此退回随机生成
// （前缀是建议性的，不是强制的）。
func (v *AddressValidator) SanitizePrefix(prefix string) string {
	cleaned := prefixStripRegex.ReplaceAllString(strings.ToLower(prefix), "")
	cleaned = Truncate(cleaned, MaxPrefixLength)
	if len(cleaned) < MinPrefixLength {
		return ""
	}
	return cleaned
}

// NormalizeAddress 规范化收件人地址：去除空白并小写化。
func (v *AddressValidator) NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress 验证完整地址是否满足 local@domain 形状与长度限制。
func (v *AddressValidator) ValidateAddress(address string) error {
	if address == "" {
		return ErrInvalidAddress
	}
	if len(address) > MaxAddressLength {
		return ErrAddressTooLong
	}
	if !addressRegex.MatchString(address) {
		return ErrInvalidAddress
	}
	return nil
}

// Truncate 按字符截断字符串到 limit 个字符。
//
// 截断是幂等的：对已截断的值再次截断不会进一步缩短。
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
