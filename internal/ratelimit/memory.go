package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process. Expired windows are swept every
// cleanup interval until Close.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*window
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

type window struct {
	count     int
	resetTime time.Time
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]*window),
		now:  time.Now,
		done: make(chan struct{}),
	}

	go store.cleanup(cleanupInterval)
	return store
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, w := range s.data {
		if now.After(w.resetTime) {
			delete(s.data, key)
		}
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	if w, exists := s.data[key]; exists && !now.After(w.resetTime) {
		return w.count, w.resetTime, nil
	}
	return 0, now, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, resetTime time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, exists := s.data[key]; exists {
		if s.now().After(w.resetTime) {
			w.count = 1
			w.resetTime = resetTime
		} else {
			w.count++
		}
		return w.count, nil
	}

	s.data[key] = &window{
		count:     1,
		resetTime: resetTime,
	}
	return 1, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	s.data = make(map[string]*window)
	s.mu.Unlock()
	return nil
}
