package suspension

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
)

func historyRecord(no notice.NoticeNo) *HistoryRecord {
	return &HistoryRecord{
		NoticeNo:           no,
		SuspensionType:     notice.SuspensionTemporary,
		ReasonOfSuspension: "OLD",
		DateOfSuspension:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDateOfRevival:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Authorizer:         "jlim",
		SourceChannel:      refdata.SourceInternal,
	}
}

func TestInMemoryHistorySeq(t *testing.T) {
	ctx := context.Background()

	t.Run("seq is per notice and strictly increasing", func(t *testing.T) {
		store := NewInMemoryHistory()

		for want := 1; want <= 3; want++ {
			seq, err := store.Append(ctx, historyRecord("N2001"))
			require.NoError(t, err)
			assert.Equal(t, want, seq)
		}

		seq, err := store.Append(ctx, historyRecord("N2002"))
		require.NoError(t, err)
		assert.Equal(t, 1, seq)
	})

	t.Run("concurrent appends never collide", func(t *testing.T) {
		store := NewInMemoryHistory()
		const writers = 20

		var wg sync.WaitGroup
		seqs := make(chan int, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seq, err := store.Append(ctx, historyRecord("N2003"))
				assert.NoError(t, err)
				seqs <- seq
			}()
		}
		wg.Wait()
		close(seqs)

		seen := make(map[int]bool)
		for seq := range seqs {
			assert.False(t, seen[seq], "seq %d allocated twice", seq)
			seen[seq] = true
		}
		assert.Len(t, seen, writers)
	})

	t.Run("close open stamps only the requested side", func(t *testing.T) {
		store := NewInMemoryHistory()

		_, err := store.Append(ctx, historyRecord("N2004"))
		require.NoError(t, err)

		crs := historyRecord("N2004")
		crs.SourceChannel = refdata.SourcePartner
		_, err = store.Append(ctx, crs)
		require.NoError(t, err)

		revivedAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		closed, err := store.CloseOpen(ctx, "N2004", refdata.SourceInternal, revivedAt)
		require.NoError(t, err)
		assert.Equal(t, 1, closed)

		records, err := store.ListByNotice(ctx, "N2004")
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, r := range records {
			if r.SourceChannel == refdata.SourceInternal {
				assert.NotNil(t, r.DateOfRevival)
			} else {
				assert.Nil(t, r.DateOfRevival)
			}
		}
	})
}
