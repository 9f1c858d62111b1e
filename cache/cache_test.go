package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementNameDeterministic(t *testing.T) {
	a := StatementName("SELECT * FROM users WHERE id = $1")
	b := StatementName("SELECT * FROM users WHERE id = $1")
	c := StatementName("SELECT * FROM users WHERE id = $2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
	assert.Regexp(t, `^pgs_[0-9a-f]{32}$`, a)
}

func TestQueryCacheEvictsOldest(t *testing.T) {
	c := NewQueryCache[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, c.Len())
}

func TestQueryCacheGetOrCompute(t *testing.T) {
	c := NewQueryCache[[]int](0)
	calls := 0
	compute := func() []int {
		calls++
		return []int{1, 2}
	}

	assert.Equal(t, []int{1, 2}, c.GetOrCompute("q", compute))
	assert.Equal(t, []int{1, 2}, c.GetOrCompute("q", compute))
	assert.Equal(t, 1, calls)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
