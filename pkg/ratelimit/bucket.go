// Package ratelimit paces outbound endpoint calls below a fixed ceiling.
//
// The bucket holds one token per permitted call in a rolling one-second
// window. A grant consumes a token; the token returns the instant the grant
// ages out of the window, so availability refills continuously rather than
// on tick boundaries. Both pollers share one bucket, which makes the ceiling
// a property of the process, not of each poller.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const window = time.Second

// Bucket grants call permits such that no rolling one-second window ever
// contains more grants than the configured ceiling.
type Bucket struct {
	mu      sync.Mutex
	ceiling int
	grants  []time.Time // ring of grant instants still inside the window
	head    int
	count   int
	total   uint64

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New returns a bucket allowing up to ceiling grants per rolling second.
// A ceiling below 1 is treated as 1.
func New(ceiling int) *Bucket {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Bucket{
		ceiling: ceiling,
		grants:  make([]time.Time, ceiling),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Acquire blocks until a permit is available or ctx is done. Permits are
// never denied outright; under contention callers wait longer but always
// eventually proceed.
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.now()
		b.evict(now)

		if b.count < b.ceiling {
			b.grant(now)
			b.mu.Unlock()
			return nil
		}

		// Full window: the next token returns when the oldest grant ages out.
		wait := window - now.Sub(b.grants[b.head])
		b.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// TryAcquire grants a permit only if one is immediately available.
func (b *Bucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.evict(now)
	if b.count >= b.ceiling {
		return false
	}
	b.grant(now)
	return true
}

// Granted reports the total number of permits granted since creation.
// The engine derives the observed query rate from this counter.
func (b *Bucket) Granted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Ceiling reports the configured grants-per-second bound.
func (b *Bucket) Ceiling() int {
	return b.ceiling
}

func (b *Bucket) grant(now time.Time) {
	b.grants[(b.head+b.count)%b.ceiling] = now
	b.count++
	b.total++
}

func (b *Bucket) evict(now time.Time) {
	for b.count > 0 && now.Sub(b.grants[b.head]) >= window {
		b.head = (b.head + 1) % b.ceiling
		b.count--
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
