package xfer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// lineTerminator is the 2-byte terminator of every protocol text line.
const lineTerminator = "\r\n"

// readChunkSize is the maximum number of payload bytes requested per Read call.
const readChunkSize = 4096

// Link is the byte-stream connection between client and device, typically a
// serial port.
//
// SetReadTimeout bounds a single blocking Read call; a timed-out Read
// returns n == 0 with a nil error, matching the go.bug.st/serial contract.
type Link interface {
	io.ReadWriteCloser
	SetReadTimeout(d time.Duration) error
}

// LineReader converts the raw byte stream of a Link into application-level
// units: CRLF-terminated text lines and fixed-length binary payloads, each
// under a wall-clock deadline.
//
// LineReader is NOT goroutine-safe. The protocol is half-duplex with at most
// one outstanding exchange, so only one read or write may be active at a time.
type LineReader struct {
	link Link
	cfg  *Config
}

func newLineReader(link Link, cfg *Config) *LineReader {
	return &LineReader{link: link, cfg: cfg}
}

// ReadLine accumulates bytes until the CRLF terminator is seen or the
// deadline elapses, and returns the decoded text with the terminator
// stripped.
//
// Malformed byte sequences in the line are substituted rather than rejected,
// so a corrupted or binary-contaminated line never aborts the session.
// Returns ErrLineTimeout when no complete line arrived before the deadline
// and ErrLineTooLong when the line exceeds the configured maximum length.
func (lr *LineReader) ReadLine(deadline time.Time) (string, error) {
	buf := make([]byte, 0, 64)
	one := make([]byte, 1)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrLineTimeout
		}

		if err := lr.setPollTimeout(remaining); err != nil {
			return "", err
		}

		n, err := lr.link.Read(one)
		if err != nil {
			return "", fmt.Errorf("xfer: read line: %w", err)
		}

		if n == 0 {
			// Poll timeout; the wall-clock deadline has not elapsed yet.
			continue
		}

		buf = append(buf, one[0])

		if len(buf) >= 2 && buf[len(buf)-2] == '\r' && buf[len(buf)-1] == '\n' {
			return decodeLine(buf[:len(buf)-2]), nil
		}

		if len(buf) > lr.cfg.maxLineLength {
			return "", fmt.Errorf("%w: %d bytes without terminator", ErrLineTooLong, len(buf))
		}
	}
}

// ReadExact collects exactly n payload bytes under one absolute deadline,
// looping with best-effort partial reads.
//
// On timeout it returns the bytes collected so far together with
// ErrReadTimeout; the caller is responsible for checking the shortfall.
func (lr *LineReader) ReadExact(n int64, deadline time.Time) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(n))

	_, err := lr.CopyExact(&buf, n, deadline)

	return buf.Bytes(), err
}

// CopyExact streams exactly n payload bytes from the link to dst under one
// absolute deadline, writing incrementally as chunks arrive so a partial
// payload is still inspectable at the destination.
//
// Returns the number of bytes written. On timeout the error is
// ErrReadTimeout; any write error on dst is returned as-is.
func (lr *LineReader) CopyExact(dst io.Writer, n int64, deadline time.Time) (int64, error) {
	chunk := make([]byte, readChunkSize)

	var written int64
	for written < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return written, ErrReadTimeout
		}

		if err := lr.setPollTimeout(remaining); err != nil {
			return written, err
		}

		want := n - written
		if want > int64(len(chunk)) {
			want = int64(len(chunk))
		}

		rn, err := lr.link.Read(chunk[:want])
		if rn > 0 {
			if _, werr := dst.Write(chunk[:rn]); werr != nil {
				return written, fmt.Errorf("xfer: write payload: %w", werr)
			}
			written += int64(rn)
		}

		if err != nil {
			return written, fmt.Errorf("xfer: read payload: %w", err)
		}
	}

	return written, nil
}

// SendLine transmits text followed by the line terminator on the link.
//
// No acknowledgment is implied; the device responds (or not) on its own
// schedule.
func (lr *LineReader) SendLine(text string) error {
	data := []byte(text + lineTerminator)

	for sent := 0; sent < len(data); {
		n, err := lr.link.Write(data[sent:])
		sent += n

		if err != nil {
			return fmt.Errorf("xfer: send %q: %w", text, err)
		}
	}

	// Push buffered bytes onto the wire when the link supports draining
	// (a real serial port does).
	if d, ok := lr.link.(interface{ Drain() error }); ok {
		if err := d.Drain(); err != nil {
			return fmt.Errorf("xfer: drain after %q: %w", text, err)
		}
	}

	return nil
}

// setPollTimeout bounds the next Read by the per-read poll interval, capped
// at the time remaining before the operation deadline.
func (lr *LineReader) setPollTimeout(remaining time.Duration) error {
	poll := lr.cfg.readPollInterval
	if remaining < poll {
		poll = remaining
	}

	if err := lr.link.SetReadTimeout(poll); err != nil {
		return fmt.Errorf("xfer: set read timeout: %w", err)
	}

	return nil
}

// decodeLine decodes a received line permissively: invalid UTF-8 sequences
// are replaced with U+FFFD instead of failing.
func decodeLine(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
