package tools

// Result is the outcome of a tool call. A degraded result still carries a
// usable Value; Reason says what went wrong. Fatal failures are returned
// as errors instead.
type Result[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// OK wraps a complete value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degrade wraps a fallback value with the reason it was used.
func Degrade[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Degraded: true, Reason: reason}
}
