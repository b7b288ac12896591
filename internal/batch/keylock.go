package batch

import (
	"sync"

	"noticeflow/internal/notice"
)

// keyedMutex serializes mutations per notice number. Independent notices run
// concurrently in the worker pool; two workers must never mutate the same
// notice at once.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[notice.NoticeNo]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[notice.NoticeNo]*sync.Mutex)}
}

// Lock acquires the mutex for no and returns its unlock function.
func (k *keyedMutex) Lock(no notice.NoticeNo) func() {
	k.mu.Lock()
	l, ok := k.locks[no]
	if !ok {
		l = &sync.Mutex{}
		k.locks[no] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
