package contract

import (
	"errors"
	"fmt"
)

// Uniform error taxonomy across both contract implementations. Callers
// branch with errors.Is and never inspect backend-specific detail; the
// wrapped detail string exists for logging only.
var (
	ErrNotFound      = errors.New("contract: not found")
	ErrAlreadyExists = errors.New("contract: already exists")
	ErrInternal      = errors.New("contract: internal error")
	ErrConnection    = errors.New("contract: connection error")
)

// Internalf wraps a backend failure so that errors.Is(err, ErrInternal)
// holds while the detail stays attached for logs.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// Connectionf marks a transport-level failure reaching a remote peer.
func Connectionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConnection, fmt.Sprintf(format, args...))
}
