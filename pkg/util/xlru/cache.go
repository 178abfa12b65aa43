package xlru

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxSize = 1 << 24

// Config 缓存配置。
type Config struct {
	// Size 最大条目数，范围 (0, 16777216]。
	Size int

	// TTL 条目存活时间，0 表示不过期。
	TTL time.Duration
}

// Option 缓存可选配置。
type Option[K comparable, V any] func(*options[K, V])

type options[K comparable, V any] struct {
	onEvicted func(key K, value V)
}

// WithOnEvicted 设置淘汰回调，回调在底层锁内同步执行。
func WithOnEvicted[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(o *options[K, V]) {
		o.onEvicted = fn
	}
}

// Stats 命中统计。
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Cache 带 TTL 的并发安全 LRU 缓存，必须通过 New 创建。
// Close 之后读返回未命中，写被忽略。
type Cache[K comparable, V any] struct {
	lru       *expirable.LRU[K, V]
	hits      atomic.Uint64
	misses    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New 创建缓存。
func New[K comparable, V any](cfg Config, opts ...Option[K, V]) (*Cache[K, V], error) {
	switch {
	case cfg.Size <= 0:
		return nil, ErrInvalidSize
	case cfg.Size > maxSize:
		return nil, ErrSizeExceedsMax
	case cfg.TTL < 0:
		return nil, ErrInvalidTTL
	}

	var o options[K, V]
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Cache[K, V]{lru: expirable.NewLRU(cfg.Size, o.onEvicted, cfg.TTL)}, nil
}

// Get 读取 key 并计入命中统计。
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	if !c.closed.Load() {
		value, ok = c.lru.Get(key)
	}
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// Set 写入 key，返回是否因此淘汰了最旧条目。
func (c *Cache[K, V]) Set(key K, value V) bool {
	if c.closed.Load() {
		return false
	}
	return c.lru.Add(key, value)
}

// Delete 删除 key，返回 key 是否存在。
func (c *Cache[K, V]) Delete(key K) bool {
	if c.closed.Load() {
		return false
	}
	return c.lru.Remove(key)
}

// Len 返回条目数，可能包含已过期但尚未清理的条目。
func (c *Cache[K, V]) Len() int {
	if c.closed.Load() {
		return 0
	}
	return c.lru.Len()
}

// Purge 清空所有条目，每个条目都会触发淘汰回调。
func (c *Cache[K, V]) Purge() {
	if c.closed.Load() {
		return
	}
	c.lru.Purge()
}

// Stats 返回累计命中统计。
func (c *Cache[K, V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close 清空缓存并停止底层清理 goroutine，可重复调用。
func (c *Cache[K, V]) Close() {
	c.closed.Store(true)
	c.closeOnce.Do(func() {
		c.lru.Purge()
		stopCleanupGoroutine(c.lru)
	})
}

// stopCleanupGoroutine 关闭 expirable.LRU 未导出的 done 通道。
// golang-lru v2.0.7 没有公开的 Close；字段结构不符时返回 false。
func stopCleanupGoroutine(lru any) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			stopped = false
		}
	}()

	v := reflect.ValueOf(lru)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	done := v.Elem().FieldByName("done")
	if !done.IsValid() || done.Type() != reflect.TypeOf(make(chan struct{})) || done.IsNil() {
		return false
	}

	ch := *(*chan struct{})(unsafe.Pointer(done.UnsafeAddr())) //nolint:gosec // 访问上游未导出字段
	close(ch)
	return true
}
