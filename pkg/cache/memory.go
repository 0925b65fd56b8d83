package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	value    interface{}
	expireAt time.Time
}

func (m *memoryItem) expired() bool {
	return time.Now().After(m.expireAt)
}

// MemoryCache implements Service with in-process storage.
type MemoryCache struct {
	data  map[string]*memoryItem
	mutex sync.RWMutex
}

// NewMemoryCache creates an in-memory cache with a background sweep.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	mc := &MemoryCache{data: make(map[string]*memoryItem)}
	if cleanupInterval > 0 {
		go mc.cleanupExpired(cleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	mc.mutex.Lock()
	mc.data[key] = &memoryItem{value: value, expireAt: time.Now().Add(expiration)}
	mc.mutex.Unlock()
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.RLock()
	item, exists := mc.data[key]
	mc.mutex.RUnlock()
	if !exists || item.expired() {
		return ErrCacheMiss
	}

	switch d := dest.(type) {
	case *float64:
		v, ok := item.value.(float64)
		if !ok {
			return fmt.Errorf("cached value for %s is %T, not float64", key, item.value)
		}
		*d = v
	case *string:
		v, ok := item.value.(string)
		if !ok {
			return fmt.Errorf("cached value for %s is %T, not string", key, item.value)
		}
		*d = v
	case *interface{}:
		*d = item.value
	default:
		return fmt.Errorf("unsupported dest type %T", dest)
	}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, key string) error {
	mc.mutex.Lock()
	delete(mc.data, key)
	mc.mutex.Unlock()
	return nil
}

func (mc *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		mc.mutex.Lock()
		for k, item := range mc.data {
			if item.expired() {
				delete(mc.data, k)
			}
		}
		mc.mutex.Unlock()
	}
}
