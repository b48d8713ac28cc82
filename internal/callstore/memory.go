package callstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record    CallRecord
	expiresAt time.Time
}

// MemoryStore keeps records in process memory. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, callID string) (CallRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key(callID)]
	if !ok {
		return CallRecord{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key(callID))
		return CallRecord{}, false, nil
	}
	return entry.record, true, nil
}

func (s *MemoryStore) Put(_ context.Context, record CallRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key(record.CallID)] = memoryEntry{record: record, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Reserve(_ context.Context, record CallRecord, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key(record.CallID)]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	s.entries[key(record.CallID)] = memoryEntry{record: record, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key(callID))
	return nil
}
