package device

import "errors"

var (
	// ErrMalformedPayload indicates a status response too short to be a
	// receiver report or that failed to parse as JSON.
	ErrMalformedPayload = errors.New("device: malformed status payload")

	// ErrUnknownDevice indicates an operation on a device the registry
	// has never seen announce itself.
	ErrUnknownDevice = errors.New("device: unknown device")
)
