package audio

import "context"

// Pending is the eventual result of a recorder operation
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

func resolved[T any](v T) *Pending[T] {
	p := newPending[T]()
	p.settle(v, nil)
	return p
}

func rejected[T any](err error) *Pending[T] {
	p := newPending[T]()
	var zero T
	p.settle(zero, err)
	return p
}

// settle must be called exactly once
func (p *Pending[T]) settle(v T, err error) {
	p.value = v
	p.err = err
	close(p.done)
}

// Done is closed once the result is available
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the result is available or ctx ends.
// Giving up on the wait does not cancel the engine call.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the result is available
func (p *Pending[T]) Result() (T, error) {
	<-p.done
	return p.value, p.err
}
