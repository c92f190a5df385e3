package model

import "errors"

var (
	// ErrConfigurationAbsent means no provider credential is configured.
	ErrConfigurationAbsent = errors.New("provider configuration absent")
	// ErrProviderTransport is a network or HTTP failure talking to a provider.
	ErrProviderTransport = errors.New("provider transport error")
	// ErrProviderResponseInvalid is a malformed or unexpected provider payload.
	ErrProviderResponseInvalid = errors.New("provider response invalid")
	ErrNotFound                = errors.New("not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidInput            = errors.New("invalid input")
)

// GenerationError is returned when a buffered answer could not be generated.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
