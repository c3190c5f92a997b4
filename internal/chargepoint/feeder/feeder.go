// Package feeder defines the source abstraction the status report is
// assembled from.
package feeder

import "context"

// Feeder produces the current value of one part of the charge point status.
// Fetch must be safe for concurrent use.
type Feeder[T any] interface {
	Fetch(ctx context.Context) (T, error)
}

// Func adapts a function to Feeder.
type Func[T any] func(ctx context.Context) (T, error)

func (f Func[T]) Fetch(ctx context.Context) (T, error) {
	return f(ctx)
}

// Static returns a feeder that always yields v.
func Static[T any](v T) Feeder[T] {
	return Func[T](func(context.Context) (T, error) { return v, nil })
}
