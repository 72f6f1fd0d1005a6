package seat

import "errors"

var (
	// ErrSeatOutOfRange indicates a seat index outside [0, MaxSeat].
	ErrSeatOutOfRange = errors.New("seat: seat number out of range")

	// ErrUnsupportedFrequency indicates a frequency no band in the
	// receiver's plan carries.
	ErrUnsupportedFrequency = errors.New("seat: frequency not representable as band/channel")

	// ErrMissingTarget indicates a message call with no text to send.
	ErrMissingTarget = errors.New("seat: no message text provided")
)
