package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const defaultMaxEntries = 1024

type memoryEntry struct {
	value    []byte
	cachedAt time.Time
	expires  time.Time
}

// Memory is an in-process TTL cache with oldest-first eviction.
type Memory struct {
	entries  map[string]memoryEntry
	mutex    sync.RWMutex
	ttl      time.Duration
	maxSize  int
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a cache holding at most maxSize entries for ttl each.
// A background sweep drops expired entries until Close.
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	c := &Memory{
		entries:  make(map[string]memoryEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expires) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return nil
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	now := c.now()
	c.entries[key] = memoryEntry{
		value:    append([]byte(nil), value...),
		cachedAt: now,
		expires:  now.Add(c.ttl),
	}
	return nil
}

func (c *Memory) DeletePrefix(_ context.Context, prefix string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Close stops the background sweep.
func (c *Memory) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	return nil
}

func (c *Memory) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *Memory) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
		}
	}
}

func (c *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopChan:
			return
		}
	}
}
