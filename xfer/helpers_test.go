package xfer

import (
	"bytes"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// fakeLink is a scripted Link for tests. Each Read consumes at most one
// enqueued chunk; once the script is exhausted, Read simulates a serial
// port poll timeout by sleeping the configured read timeout and returning
// (0, nil), matching the go.bug.st/serial contract.
type fakeLink struct {
	chunks      [][]byte
	wrote       bytes.Buffer
	readTimeout time.Duration
	closed      bool
}

func (f *fakeLink) enqueue(data []byte) {
	f.chunks = append(f.chunks, data)
}

// enqueueLine enqueues a CRLF-terminated text line.
func (f *fakeLink) enqueueLine(s string) {
	f.enqueue([]byte(s + "\r\n"))
}

func (f *fakeLink) Read(p []byte) (int, error) {
	if f.closed {
		return 0, io.ErrClosedPipe
	}

	if len(f.chunks) == 0 {
		time.Sleep(f.readTimeout)
		return 0, nil
	}

	chunk := f.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		f.chunks[0] = chunk[n:]
	} else {
		f.chunks = f.chunks[1:]
	}

	return n, nil
}

func (f *fakeLink) Write(p []byte) (int, error) {
	return f.wrote.Write(p)
}

func (f *fakeLink) Close() error {
	f.closed = true
	return nil
}

func (f *fakeLink) SetReadTimeout(d time.Duration) error {
	f.readTimeout = d
	return nil
}

// newTestConfig creates a Config with short timeouts and an in-memory
// filesystem suitable for tests.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	defaults := []Option{
		WithLineTimeout(50 * time.Millisecond),
		WithListPollTimeout(30 * time.Millisecond),
		WithListGracePeriod(10 * time.Millisecond),
		WithDownloadTimeout(100 * time.Millisecond),
		WithFooterTimeout(50 * time.Millisecond),
		WithReadPollInterval(time.Millisecond),
		WithFs(afero.NewMemMapFs()),
	}

	cfg, err := NewConfig(append(defaults, opts...)...)
	require.NoError(t, err)

	return cfg
}

// newTestClient creates a Client over a fresh fakeLink.
func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeLink, afero.Fs) {
	t.Helper()

	link := &fakeLink{}
	cfg := newTestConfig(t, opts...)

	c, err := NewClient(link, cfg)
	require.NoError(t, err)

	return c, link, cfg.fs
}

// enqueueFile enqueues a complete, well-formed download response: header,
// payload, and footer.
func enqueueFile(link *fakeLink, path string, payload []byte) {
	link.enqueueLine("FILEBEGIN " + path + " " + strconv.Itoa(len(payload)))
	link.enqueue(payload)
	link.enqueueLine("FILEEND")
}
