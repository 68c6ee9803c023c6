package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator("snapmail.temp")

	t.Run("随机地址本地部分固定10个字符", func(t *testing.T) {
		addr := g.Generate("")
		local, dom, found := strings.Cut(addr, "@")
		assert.True(t, found)
		assert.Equal(t, "snapmail.temp", dom)
		assert.Len(t, local, 10)
		for _, r := range local {
			assert.Contains(t, alphabet, string(r))
		}
	})

	t.Run("多次生成产出不同地址", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			seen[g.Generate("")] = struct{}{}
		}
		assert.Greater(t, len(seen), 95)
	})

	t.Run("合法前缀直接作为本地部分", func(t *testing.T) {
		assert.Equal(t, "alice@snapmail.temp", g.Generate("alice"))
	})

	t.Run("前缀净化后采用", func(t *testing.T) {
		assert.Equal(t, "bob-123@snapmail.temp", g.Generate("Bob!-123"))
	})

	t.Run("过短前缀退回随机生成", func(t *testing.T) {
		addr := g.Generate("ab")
		local, _, _ := strings.Cut(addr, "@")
		assert.Len(t, local, 10)
		assert.NotEqual(t, "ab", local)
	})

	t.Run("超长前缀截断到20字符", func(t *testing.T) {
		addr := g.Generate(strings.Repeat("z", 50))
		local, _, _ := strings.Cut(addr, "@")
		assert.Equal(t, strings.Repeat("z", 20), local)
	})
}

func TestGenerator_HasCustomPrefix(t *testing.T) {
	g := NewGenerator("snapmail.temp")

	t.Run("可用前缀返回真", func(t *testing.T) {
		assert.True(t, g.HasCustomPrefix("alice"))
	})

	t.Run("空前缀与净化后过短的前缀返回假", func(t *testing.T) {
		assert.False(t, g.HasCustomPrefix(""))
		assert.False(t, g.HasCustomPrefix("a!"))
	})
}
