package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TTLCache 带过期时间的 LRU 缓存，容量满时淘汰最久未使用的条目
type TTLCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	now     func() time.Time
}

// NewTTLCache size 为最大条目数
func NewTTLCache[T any](size int) *TTLCache[T] {
	// lru.New 是线程安全的，size <= 0 时才会返回错误
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, CacheItem[T]](size)
	return &TTLCache[T]{
		storage: c,
		now:     time.Now,
	}
}

// Set 写入或更新，ttl 后过期
func (c *TTLCache[T]) Set(key string, value T, ttl time.Duration) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: c.now().Add(ttl),
	})
}

// Get 读取（带过期检查）
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if c.now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

// Delete 删除
func (c *TTLCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Len 当前条目数（含尚未被访问清理的过期条目）
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}
