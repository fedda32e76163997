package dispatch

import (
	"context"
	"sync"
)

// StopToken is a one-way shared flag telling workers not to start new jobs.
type StopToken struct {
	once sync.Once
	done chan struct{}
}

// NewStopToken returns an unset token.
func NewStopToken() *StopToken {
	return &StopToken{done: make(chan struct{})}
}

// Stop sets the token. Repeated calls are no-ops.
func (t *StopToken) Stop() {
	t.once.Do(func() { close(t.done) })
}

// Stopped reports whether Stop has been called.
func (t *StopToken) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is set.
func (t *StopToken) Done() <-chan struct{} {
	return t.done
}

// StopOnDone sets the token when ctx is cancelled. The returned function
// detaches the link.
func (t *StopToken) StopOnDone(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, t.Stop)
}
