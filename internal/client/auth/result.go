package auth

// Result is the outcome of a flow invocation: either a value or a
// human-readable failure message, never both.
type Result[T any] struct {
	value   T
	message string
	ok      bool
}

// Success wraps a successful value
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure wraps a failure message
func Failure[T any](message string) Result[T] {
	return Result[T]{message: message}
}

// OK reports whether the flow succeeded
func (r Result[T]) OK() bool {
	return r.ok
}

// Value returns the success value (zero on failure)
func (r Result[T]) Value() T {
	return r.value
}

// Message returns the failure message ("" on success)
func (r Result[T]) Message() string {
	return r.message
}

// Done пустое значение для потоков без полезного результата
type Done struct{}
