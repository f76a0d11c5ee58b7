package fins

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBitValue is returned when a value other than 0 or 1 is
	// written to a bit-typed address. Nothing is sent.
	ErrInvalidBitValue = errors.New("invalid bit value")

	// ErrNotOpen is returned by operations issued before Open.
	ErrNotOpen = errors.New("client is not open")

	// ErrNoAddresses is returned by ReadMultiple without addresses.
	ErrNoAddresses = errors.New("no addresses given")
)

// ClientClosedError is returned by operations on a closed client.
type ClientClosedError struct{}

func (ClientClosedError) Error() string {
	return "FINS client is closed"
}

// AddressError reports a memory address string that does not follow
// <AREA><WORD>[:<BIT>].
type AddressError struct {
	Address string
	Reason  string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid memory address %q: %s", e.Address, e.Reason)
}

// UnknownMemoryAreaError reports area letters missing from MemoryAreas.
// The address returned alongside it carries DefaultMemoryArea.
type UnknownMemoryAreaError struct {
	Area string
}

func (e *UnknownMemoryAreaError) Error() string {
	return fmt.Sprintf("unknown memory area %q", e.Area)
}

// ShortFrameError reports an inbound datagram too short to be a reply.
type ShortFrameError struct {
	Length int
}

func (e *ShortFrameError) Error() string {
	return fmt.Sprintf("short FINS frame: %d bytes (min %d)", e.Length, FINS_REPLY_MIN_SIZE)
}

// SendError wraps a socket-level failure. The client delivers it as an
// error event rather than returning it.
type SendError struct {
	SID byte
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send sid %d: %v", e.SID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// EndCodeError converts a non-zero response code into an error for callers
// who want one. The client itself never inspects response codes.
type EndCodeError struct {
	EndCode string
}

func (e EndCodeError) Error() string {
	return fmt.Sprintf("error reported by destination, end code 0x%s: %s", e.EndCode, ResponseText(e.EndCode))
}
