package security

import (
	"context"
	"sync"
	"time"
)

// Sweeper runs a function on a fixed interval until stopped.
type Sweeper struct {
	interval time.Duration
	sweep    func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	once     sync.Once
}

// StartSweeper starts calling sweep every interval in a background goroutine.
// The goroutine exits when ctx is cancelled or Stop is called.
func StartSweeper(ctx context.Context, interval time.Duration, sweep func()) *Sweeper {
	s := &Sweeper{
		interval: interval,
		sweep:    sweep,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go s.loop(ctx)
	return s
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Stop cancels the sweeper and waits for the goroutine to exit. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}
