package kvstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero never expires
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a single-process Store. Expired entries are swept
// periodically until Close.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

func NewMemoryStore(sweepEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]entry),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if sweepEvery > 0 {
		go s.sweep(sweepEvery)
	}
	return s
}

func (s *MemoryStore) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.mu.Lock()
			now := s.now()
			for k, e := range s.data {
				if e.expired(now) {
					delete(s.data, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || e.expired(s.now()) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[key]; ok && !e.expired(s.now()) {
		return false, nil
	}
	s.data[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
