package news

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service matches exactly one of them
// with errors.Is.
var (
	// ErrValidation marks malformed or missing input. No provider was called.
	ErrValidation = errors.New("invalid request")

	// ErrProvider marks a failed embedding or generation call.
	ErrProvider = errors.New("provider error")

	// ErrStorage marks a failed vector store read or write.
	ErrStorage = errors.New("storage error")

	// ErrGenerationDisabled is returned by operations that need a
	// generator when none is configured.
	ErrGenerationDisabled = errors.New("generation is disabled")
)

// Error carries the kind and the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func providerError(op string, err error) error {
	return &Error{Kind: ErrProvider, Op: op, Err: err}
}

func storageError(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}
