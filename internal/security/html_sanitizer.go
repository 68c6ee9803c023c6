package security

import (
	"regexp"
)

// HTMLSanitizer 邮件 HTML 净化器。
//
// 入库前剥离可执行内容：script 标签、内联事件处理属性、
// javascript: 与 data: 形式的 src/href。内容按净化后的形态存储，
// 客户端可以直接渲染，不依赖展示层再次过滤。
type HTMLSanitizer struct {
	patterns []*regexp.Regexp
}

// NewHTMLSanitizer 创建 HTML 净化器。
func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{
		patterns: []*regexp.Regexp{
			// script 标签连同内容
			regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
			// 残缺的 script 起止标签
			regexp.MustCompile(`(?i)</?script[^>]*>`),
			// 内联事件处理属性 onload= onclick= 等
			regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`),
			// javascript: 伪协议链接
			regexp.MustCompile(`(?i)(href|src)\s*=\s*("javascript:[^"]*"|'javascript:[^']*'|javascript:[^\s>]*)`),
			// data: URL 形式的资源引用
			regexp.MustCompile(`(?i)(href|src)\s*=\s*("data:[^"]*"|'data:[^']*'|data:[^\s>]*)`),
		},
	}
}

// Sanitize 去除 HTML 中的可执行内容，保留其余标记。
func (s *HTMLSanitizer) Sanitize(html string) string {
	for _, pattern := range s.patterns {
		html = pattern.ReplaceAllString(html, "")
	}
	return html
}
