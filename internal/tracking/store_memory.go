package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"noticeflow/internal/notice"
)

type dayKey struct {
	no    notice.NoticeNo
	group notice.StageGroup
	day   time.Time
}

// InMemoryStore keeps tracking records keyed by (notice, group, day).
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[dayKey]*Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[dayKey]*Record)}
}

func (s *InMemoryStore) Append(_ context.Context, r *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey{no: r.NoticeNo, group: r.Group, day: notice.Midnight(r.DateOfProcessing)}
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	cp := *r
	cp.DateOfProcessing = key.day
	s.records[key] = &cp
	return true, nil
}

func (s *InMemoryStore) ListByNotice(_ context.Context, no notice.NoticeNo) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for key, r := range s.records {
		if key.no == no {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateOfProcessing.Before(out[j].DateOfProcessing)
	})
	return out, nil
}

func (s *InMemoryStore) FindByDay(_ context.Context, no notice.NoticeNo, group notice.StageGroup, day time.Time) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[dayKey{no: no, group: group, day: notice.Midnight(day)}]
	if !exists {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}
