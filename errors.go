package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAmbientScope is reported when a context operation runs with no
	// execution scope established (outside any Run).
	ErrNoAmbientScope = errors.New("no ambient execution scope")

	// ErrScopeClosed is reported when a context operation runs against a
	// scope whose run has already resolved.
	ErrScopeClosed = errors.New("execution scope already closed")

	// ErrValueAbsent is reported by Context.Assert when the resolved value
	// is nil-like.
	ErrValueAbsent = errors.New("context value absent")

	// ErrNoResult is reported when the last middleware calls next with no
	// further middleware registered and no OnLast handler supplied.
	ErrNoResult = errors.New("no middleware produced a result")
)

// UsageError marks a programming error at a context or pipeline call site.
// It always wraps one of the sentinel errors above.
type UsageError struct {
	Op       string
	Pipeline string
	Context  string
	Err      error
}

func (e *UsageError) Error() string {
	switch {
	case e.Context != "":
		return fmt.Sprintf("usage error in %s on context %q: %v", e.Op, e.Context, e.Err)
	case e.Pipeline != "":
		return fmt.Sprintf("usage error in %s on pipeline %q: %v", e.Op, e.Pipeline, e.Err)
	default:
		return fmt.Sprintf("usage error in %s: %v", e.Op, e.Err)
	}
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// SafeTypeAssertion performs safe type assertion with proper error
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}
