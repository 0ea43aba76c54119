package depthmap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unstable-studios/threedepth/pkg/kernel"
	"github.com/unstable-studios/threedepth/pkg/logging"
)

// Session serialises renders for one interactive view. Each call to
// Render supersedes the previous one: the older render is canceled and
// its result is never published, even if it finishes later.
//
// Session is safe for concurrent use.
type Session struct {
	// Timeout bounds a single render. Zero means no limit.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	latest     *Result
}

// NewSession returns a session with the given per-render timeout.
func NewSession(timeout time.Duration) *Session {
	return &Session{Timeout: timeout}
}

type renderOutcome struct {
	result *Result
	err    error
}

// Render starts a new render, canceling any render still in flight.
//
// Return semantics:
//   - On success: the result, which also becomes Latest
//   - When a newer render started meanwhile: ErrSuperseded
//   - When Timeout elapses first: ErrTimeout
//   - Otherwise the error from the pipeline
func (s *Session) Render(ctx context.Context, m *kernel.Mesh, cfg Config, opts ...Option) (*Result, error) {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	ch := make(chan renderOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- renderOutcome{err: fmt.Errorf("panic during render: %v", r)}
			}
		}()
		res, err := Render(rctx, m, cfg, opts...)
		ch <- renderOutcome{result: res, err: err}
	}()

	return s.wait(ch, gen, cancel)
}

// wait blocks for the render result or the timeout. On timeout the
// render is canceled; the generation check discards its late result.
func (s *Session) wait(ch <-chan renderOutcome, gen uint64, cancel context.CancelFunc) (*Result, error) {
	var timeout <-chan time.Time
	if s.Timeout > 0 {
		timer := time.NewTimer(s.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-ch:
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation {
			logging.Logger().Warn("render superseded", "generation", gen, "current", s.generation)
			return nil, ErrSuperseded
		}
		s.cancel = nil
		if out.err != nil {
			return nil, out.err
		}
		s.latest = out.result
		return out.result, nil

	case <-timeout:
		cancel()
		logging.Logger().Warn("render timed out", "generation", gen, "timeout", s.Timeout)
		return nil, fmt.Errorf("%w after %s", ErrTimeout, s.Timeout)
	}
}

// Latest returns the most recent result that was not superseded, or nil.
func (s *Session) Latest() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
