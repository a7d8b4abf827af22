package session

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a scheduled call. It reports whether the call was stopped
// before it ran.
type Cancel func() bool

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Cancel
}

// RealScheduler uses wall-clock timers.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	return time.AfterFunc(d, f).Stop
}

// ImmediateScheduler runs f synchronously, ignoring d. Test mode uses it.
type ImmediateScheduler struct{}

func (ImmediateScheduler) AfterFunc(_ time.Duration, f func()) Cancel {
	f()
	return func() bool { return false }
}

// FakeScheduler holds calls until Advance moves its clock past them.
type FakeScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	queue []*fakeCall
}

type fakeCall struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c := &fakeCall{at: s.now + d, seq: s.seq, f: f}
	s.queue = append(s.queue, c)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c.stopped {
			return false
		}
		for i, q := range s.queue {
			if q == c {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				c.stopped = true
				return true
			}
		}
		return false
	}
}

// Advance moves the clock forward, running due calls in time order.
// Calls scheduled by a running call are honored if they fall due too.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	for {
		sort.SliceStable(s.queue, func(i, j int) bool {
			if s.queue[i].at != s.queue[j].at {
				return s.queue[i].at < s.queue[j].at
			}
			return s.queue[i].seq < s.queue[j].seq
		})
		if len(s.queue) == 0 || s.queue[0].at > target {
			break
		}
		c := s.queue[0]
		s.queue = s.queue[1:]
		c.stopped = true
		s.now = c.at
		s.mu.Unlock()
		c.f()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

// Pending is the number of calls not yet run or stopped.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
