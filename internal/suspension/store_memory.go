package suspension

import (
	"context"
	"sort"
	"sync"
	"time"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
)

// InMemoryHistoryStore keeps history records per notice. The single mutex also
// serializes sequence allocation, mirroring what the postgres store achieves
// with its atomic insert.
type InMemoryHistoryStore struct {
	mu      sync.Mutex
	records map[notice.NoticeNo][]*HistoryRecord
}

func NewInMemoryHistory() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{records: make(map[notice.NoticeNo][]*HistoryRecord)}
}

func (s *InMemoryHistoryStore) Append(_ context.Context, r *HistoryRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := 1
	for _, existing := range s.records[r.NoticeNo] {
		if existing.Seq >= seq {
			seq = existing.Seq + 1
		}
	}
	cp := *r
	cp.Seq = seq
	s.records[r.NoticeNo] = append(s.records[r.NoticeNo], &cp)
	return seq, nil
}

func (s *InMemoryHistoryStore) ListByNotice(_ context.Context, no notice.NoticeNo) ([]*HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*HistoryRecord
	for _, r := range s.records[no] {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *InMemoryHistoryStore) CloseOpen(_ context.Context, no notice.NoticeNo, side refdata.Source, revivedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := 0
	for _, r := range s.records[no] {
		if r.Open() && r.SourceChannel == side {
			t := revivedAt
			r.DateOfRevival = &t
			closed++
		}
	}
	return closed, nil
}
