package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks precondition violations. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProviderUnavailable is returned by a provider that has no
	// credentials (or no binary) configured. Callers skip it silently.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ProviderError is a real failure from one backend
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NarrationError is returned once every narration provider has been tried
type NarrationError struct {
	Tried []string
	Err   error
}

func (e *NarrationError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("narration failed: %v", e.Err)
	}
	return fmt.Sprintf("narration failed after trying %s: %v", strings.Join(e.Tried, ", "), e.Err)
}

func (e *NarrationError) Unwrap() error { return e.Err }

// AssemblyError is a video assembly failure, either a rejected input or an
// encoder error. Output holds the tail of the encoder's stderr when present.
type AssemblyError struct {
	Reason string
	Output string
	Err    error
}

func (e *AssemblyError) Error() string {
	var b strings.Builder
	b.WriteString("video assembly: ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Output != "" {
		b.WriteString(" (")
		b.WriteString(e.Output)
		b.WriteString(")")
	}
	return b.String()
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// InvalidArgf builds an error wrapping ErrInvalidArgument
func InvalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Unavailablef builds an error wrapping ErrProviderUnavailable
func Unavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderUnavailable, fmt.Sprintf(format, args...))
}
