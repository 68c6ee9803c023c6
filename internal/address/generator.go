// Package address 负责生成临时邮箱地址。
//
// 生成器只产出候选地址，不保证全局唯一：冲突检测是存储层在创建
// 时的职责，调用方按约定重试。
package address

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"snapmail/backend/internal/domain"
)

// 随机本地部分固定 10 个字符，字母表为 36 个小写字母数字。
const (
	randomLocalPartLength = 10
	alphabet              = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator 地址生成器。
type Generator struct {
	domain    string
	validator *domain.AddressValidator

	mu     sync.Mutex
	random *rand.Rand
}

// NewGenerator 创建绑定到指定域名后缀的地址生成器。
func NewGenerator(domainSuffix string) *Generator {
	return &Generator{
		domain:    domainSuffix,
		validator: domain.NewAddressValidator(),
		random:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate 生成一个候选地址。
//
// 给定前缀时先做白名单净化，净化结果过短则退回随机生成；
// 前缀是建议性的，不是强制的。
func (g *Generator) Generate(prefix string) string {
	local := g.validator.SanitizePrefix(prefix)
	if local == "" {
		local = g.randomLocalPart()
	}
	return fmt.Sprintf("%s@%s", local, g.domain)
}

// GenerateRandom 生成一个纯随机地址，忽略任何前缀。
func (g *Generator) GenerateRandom() string {
	return fmt.Sprintf("%s@%s", g.randomLocalPart(), g.domain)
}

// HasCustomPrefix 判断给定前缀净化后是否会被实际采用。
func (g *Generator) HasCustomPrefix(prefix string) bool {
	return g.validator.SanitizePrefix(prefix) != ""
}

// randomLocalPart 从字母表均匀抽取 randomLocalPartLength 个字符。
func (g *Generator) randomLocalPart() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, randomLocalPartLength)
	for i := range b {
		b[i] = alphabet[g.random.Intn(len(alphabet))]
	}
	return string(b)
}
