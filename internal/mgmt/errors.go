package mgmt

import (
	"errors"
	"fmt"
)

// StatusFailure is reported for failures that carry no radio status code,
// such as a closed serial link or a timed out request.
const StatusFailure = 1

// StatusInvalid is reported for requests rejected before reaching the radio.
const StatusInvalid = -1

// Domain errors for the management plane.
var (
	// ErrUnsupportedVerb is returned when a handler does not accept the
	// request's method.
	ErrUnsupportedVerb = errors.New("http verb is not supported")

	// ErrUnknownTopic is returned when a request names no known handler.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrMalformedHex is returned when a hex string contains characters
	// outside [0-9a-fA-F].
	ErrMalformedHex = errors.New("malformed hex value")

	// ErrLengthMismatch is returned when a hex string does not encode
	// exactly the declared number of bytes.
	ErrLengthMismatch = errors.New("value length does not match len")

	// ErrValueTooLarge is returned when a value would not fit the 512
	// character scratch buffer used for its text form.
	ErrValueTooLarge = errors.New("value too large")

	// ErrChannelOutOfRange is returned for logical channels above 26.
	ErrChannelOutOfRange = errors.New("channel number out of range")
)

// MissingParameterError names the first required parameter absent from a
// request.
type MissingParameterError struct {
	Field string
}

func (e *MissingParameterError) Error() string {
	return e.Field + " is missing"
}

// InvalidParameterError is returned when a parameter is present but cannot
// be coerced to the type the handler needs.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Field, e.Reason)
}

// HALError carries a non-zero status code returned by the radio.
type HALError struct {
	Op   string
	Code int
}

func (e *HALError) Error() string {
	return fmt.Sprintf("%s: radio status 0x%02x", e.Op, e.Code)
}

// StatusOf maps an error to the status value rendered in a Response.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}

	var halErr *HALError
	if errors.As(err, &halErr) {
		return halErr.Code
	}

	if isLocal(err) {
		return StatusInvalid
	}
	return StatusFailure
}

func isLocal(err error) bool {
	var missing *MissingParameterError
	var invalid *InvalidParameterError
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid):
		return true
	case errors.Is(err, ErrUnsupportedVerb),
		errors.Is(err, ErrUnknownTopic),
		errors.Is(err, ErrMalformedHex),
		errors.Is(err, ErrLengthMismatch),
		errors.Is(err, ErrValueTooLarge),
		errors.Is(err, ErrChannelOutOfRange):
		return true
	}
	return false
}
