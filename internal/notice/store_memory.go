package notice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps notices in a map for unit tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	notices map[NoticeNo]*Notice
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{notices: make(map[NoticeNo]*Notice)}
}

func (s *InMemoryStore) Save(_ context.Context, n *Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notices[n.NoticeNo]; exists {
		return fmt.Errorf("notice %s already exists", n.NoticeNo)
	}
	cp := *n
	s.notices[n.NoticeNo] = &cp
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, n *Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notices[n.NoticeNo]; !exists {
		return fmt.Errorf("notice %s not found", n.NoticeNo)
	}
	cp := *n
	s.notices[n.NoticeNo] = &cp
	return nil
}

func (s *InMemoryStore) FindByNo(_ context.Context, no NoticeNo) (*Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.notices[no]
	if !exists {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *InMemoryStore) ListByNextStage(_ context.Context, stage Stage, dueBy time.Time) ([]*Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Notice
	for _, n := range s.notices {
		if n.NextProcessingStage == stage && !n.NextProcessingDate.After(dueBy) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoticeNo < out[j].NoticeNo })
	return out, nil
}

func (s *InMemoryStore) ListDirty(_ context.Context, limit int) ([]*Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Notice
	for _, n := range s.notices {
		if n.IsSync == SyncDirty {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkSynced(_ context.Context, no NoticeNo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notices[no]
	if !exists {
		return fmt.Errorf("notice %s not found", no)
	}
	n.IsSync = SyncClean
	return nil
}
