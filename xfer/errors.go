package xfer

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transfer protocol.
var (
	// Line reader errors.
	ErrLineTimeout = errors.New("xfer: no complete line before deadline")
	ErrReadTimeout = errors.New("xfer: payload read deadline exceeded")
	ErrLineTooLong = errors.New("xfer: line exceeds maximum length")

	// Listing errors.
	ErrListLineMalformed = errors.New("xfer: malformed list entry")

	// Download errors.
	ErrHeaderTimeout    = errors.New("xfer: no file header received")
	ErrUnexpectedHeader = errors.New("xfer: unexpected file header")
	ErrHeaderMalformed  = errors.New("xfer: malformed file header")
	ErrSizeNotNumeric   = errors.New("xfer: size field is not a non-negative integer")
	ErrPathEmpty        = errors.New("xfer: file path is empty")
)

// DeviceError is an explicit "ERR:" line reported by the device.
//
// Device errors are recoverable: the device is assumed to return to a clean
// protocol state after emitting one, so subsequent exchanges are unaffected.
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string {
	return "xfer: device error: " + e.Message
}

// ShortReadError reports that fewer payload bytes than the header announced
// arrived before the download deadline. The partial file remains on disk.
type ShortReadError struct {
	Path     string
	Expected int64
	Received int64
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("xfer: short read for %s: expected %d bytes, received %d",
		e.Path, e.Expected, e.Received)
}

// FooterError reports a missing or mismatched FILEEND footer after a payload.
// Line is empty when the footer never arrived.
//
// A FooterError means the stream is desynchronized even when the byte count
// matched, so the download is reported as a failure.
type FooterError struct {
	Path string
	Line string
}

func (e *FooterError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("xfer: footer missing for %s", e.Path)
	}

	return fmt.Sprintf("xfer: bad footer for %s: %q", e.Path, e.Line)
}
