package backend

import "context"

// Pending is the asynchronous result of a store operation. It settles once,
// after the simulated delay. Abandoning a Wait does not cancel the operation.
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

func settled[T any](value T, err error) *Pending[T] {
	p := newPending[T]()
	p.settle(value, err)
	return p
}

func (p *Pending[T]) settle(value T, err error) {
	p.value = value
	p.err = err
	close(p.done)
}

// Done is closed when the result is available
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Pending[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or ctx is done
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
