package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Pipeline error taxonomy
	ErrValidation           = fmt.Errorf("validation failed")
	ErrUpstreamProvider     = fmt.Errorf("upstream provider error")
	ErrMalformedModelOutput = fmt.Errorf("malformed model output")
	ErrPartialWrite         = fmt.Errorf("playlist partially written")

	// Session errors
	ErrSessionNotFound = fmt.Errorf("no active session")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ProviderError describes a failed call to an upstream provider (the streaming service or the LLM).
//
// It matches [ErrUpstreamProvider] with [errors.Is] so callers can classify without knowing the provider.
type ProviderError struct {
	Provider string // "spotify", "openai"
	Op       string // operation name, e.g. "playlist items"
	Status   int    // HTTP status when known, 0 otherwise
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == ErrUpstreamProvider
}

// NewProviderError wraps err as a [ProviderError]. A nil err yields nil.
func NewProviderError(provider, op string, status int, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Status: status, Err: err}
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
