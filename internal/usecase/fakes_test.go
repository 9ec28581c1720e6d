package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/follower-tracker/internal/entity"
)

// stubPages serves a fixed page or error.
type stubPages struct {
	content string
	err     error
	calls   atomic.Int32
}

func (s *stubPages) Fetch(context.Context, string) (string, error) {
	s.calls.Add(1)
	return s.content, s.err
}

// scriptedSource returns queued snapshots in order, repeating the last one.
type scriptedSource struct {
	mu        sync.Mutex
	snapshots []entity.Snapshot
	calls     atomic.Int32
	started   chan struct{}
	release   chan struct{}
}

func (s *scriptedSource) FetchSnapshot(ctx context.Context, identity string) entity.Snapshot {
	n := s.calls.Add(1)
	if s.started != nil && n == 1 {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshots[0]
	if len(s.snapshots) > 1 {
		s.snapshots = s.snapshots[1:]
	}
	snap.Username = identity
	return snap
}

// fakeLock reports a fixed acquisition outcome.
type fakeLock struct {
	acquired bool
	released atomic.Bool
}

func (l *fakeLock) TryAcquire(context.Context) (func(), bool, error) {
	if !l.acquired {
		return nil, false, nil
	}
	return func() { l.released.Store(true) }, true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
