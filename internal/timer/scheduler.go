package timer

import (
	"sync"
	"time"
)

// Scheduler invokes fn once per interval until the returned stop func is
// called. Stop must not block waiting for an in-flight fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler drives callbacks from a time.Ticker goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// ManualScheduler fires only when Fire is called. It lets callers step the
// countdown deterministically.
type ManualScheduler struct {
	mu     sync.Mutex
	fn     func()
	starts int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	s.fn = fn
	s.starts++
	registration := s.starts
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.starts == registration {
			s.fn = nil
		}
		s.mu.Unlock()
	}
}

// Active reports whether a periodic callback is registered.
func (s *ManualScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

// Starts counts how many times a periodic callback was registered.
func (s *ManualScheduler) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Fire runs the registered callback n times, stopping early if it is
// cancelled in between. It returns how many callbacks ran.
func (s *ManualScheduler) Fire(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		s.mu.Lock()
		fn := s.fn
		s.mu.Unlock()
		if fn == nil {
			return fired
		}
		fn()
		fired++
	}
	return fired
}
