package xlru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"ZeroSize", Config{}, ErrInvalidSize},
		{"TooLarge", Config{Size: maxSize + 1}, ErrSizeExceedsMax},
		{"NegativeTTL", Config{Size: 1, TTL: -time.Second}, ErrInvalidTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[string, int](tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCache_GetSetEvict(t *testing.T) {
	var evicted []string
	c, err := New(Config{Size: 2}, WithOnEvicted(func(k string, _ []byte) {
		evicted = append(evicted, k)
	}))
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Set("a", []byte("1")))
	assert.False(t, c.Set("b", []byte("2")))
	_, ok := c.Get("a")
	assert.True(t, ok)
	assert.True(t, c.Set("c", []byte("3")))
	assert.Equal(t, []string{"b"}, evicted)

	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestCache_TTL(t *testing.T) {
	c, err := New[string, int](Config{Size: 4, TTL: 20 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", 1)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestCache_Close(t *testing.T) {
	c, err := New[string, int](Config{Size: 4, TTL: time.Minute})
	require.NoError(t, err)
	c.Set("k", 1)

	c.Close()
	c.Close()

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Set("k", 2))
	assert.False(t, c.Delete("k"))
	assert.Zero(t, c.Len())
	c.Purge()
}

func TestStopCleanupGoroutine(t *testing.T) {
	assert.False(t, stopCleanupGoroutine(nil))
	assert.False(t, stopCleanupGoroutine(&struct{ done int }{}))
}
