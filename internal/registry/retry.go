package registry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryingProvider wraps a Provider with a per-lookup timeout and bounded
// exponential backoff. Registry lookups are the I/O-bound edge of the batch;
// a flaky registry must not abort the run, and a stuck one must not stall it.
type RetryingProvider struct {
	inner    Provider
	attempts int
	baseWait time.Duration
	timeout  time.Duration
	log      *logrus.Logger
}

func NewRetrying(inner Provider, log *logrus.Logger) *RetryingProvider {
	return &RetryingProvider{
		inner:    inner,
		attempts: 3,
		baseWait: 200 * time.Millisecond,
		timeout:  5 * time.Second,
		log:      log,
	}
}

func (p *RetryingProvider) Lookup(ctx context.Context, key Key) (*ContactRecord, error) {
	var lastErr error
	wait := p.baseWait

	for attempt := 1; attempt <= p.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		record, err := p.inner.Lookup(attemptCtx, key)
		cancel()
		if err == nil {
			return record, nil
		}
		lastErr = err

		if attempt < p.attempts {
			p.log.WithFields(logrus.Fields{
				"notice":  key.NoticeNo.String(),
				"attempt": attempt,
			}).Warn("registry lookup failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
	}
	return nil, lastErr
}
