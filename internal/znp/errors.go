package znp

import (
	"errors"
	"fmt"
)

// Domain errors for the ZNP link.
var (
	// ErrClosed is returned by operations on a closed link.
	ErrClosed = errors.New("znp: link closed")

	// ErrTimeout is returned when the coprocessor does not answer a
	// synchronous request in time.
	ErrTimeout = errors.New("znp: request timed out")

	// ErrBadChecksum is returned for frames whose FCS does not match.
	ErrBadChecksum = errors.New("znp: bad frame checksum")

	// ErrFrameTooLong is returned when a payload exceeds the MT limit.
	ErrFrameTooLong = errors.New("znp: frame payload too long")

	// ErrShortResponse is returned when a response carries fewer bytes
	// than its command defines.
	ErrShortResponse = errors.New("znp: short response")

	// ErrUnsupportedCluster is returned when SendBroadcast is asked to send
	// a ZDP frame the coprocessor has no MT command for.
	ErrUnsupportedCluster = errors.New("znp: unsupported zdo cluster")
)

// shortResponse wraps ErrShortResponse with the command and lengths.
func shortResponse(cmd CommandID, got, want int) error {
	return fmt.Errorf("%w: %s returned %d bytes, want %d", ErrShortResponse, cmd, got, want)
}
