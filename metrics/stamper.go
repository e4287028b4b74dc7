package metrics

import (
	"sync"
	"time"
)

// StampPrecision is the resolution of the store's timestamp columns.
// Two stamps closer than this would collide on the time primary key.
const StampPrecision = time.Microsecond

// Stamper hands out strictly increasing capture times. Every adapter in
// one process shares a Stamper so that samples of the same kind never
// share a time key, even when the wall clock has not moved.
type Stamper struct {
	mu    sync.Mutex
	now   func() time.Time
	sleep func(time.Duration)
	last  time.Time
}

func NewStamper() *Stamper {
	return NewStamperWithClock(time.Now, time.Sleep)
}

// NewStamperWithClock builds a Stamper on an injected clock.
func NewStamperWithClock(now func() time.Time, sleep func(time.Duration)) *Stamper {
	return &Stamper{now: now, sleep: sleep}
}

// Stamp returns the current time truncated to StampPrecision, bumped
// past the previous stamp if needed.
func (s *Stamper) Stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stampLocked()
}

// Pace waits until at least gap has elapsed since the previous stamp and
// then stamps.
func (s *Stamper) Pace(gap time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gap > 0 && !s.last.IsZero() {
		if wait := s.last.Add(gap).Sub(s.now()); wait > 0 {
			s.sleep(wait)
		}
	}
	return s.stampLocked()
}

func (s *Stamper) stampLocked() time.Time {
	t := s.now().UTC().Truncate(StampPrecision)
	if !t.After(s.last) {
		t = s.last.Add(StampPrecision)
	}
	s.last = t
	return t
}
