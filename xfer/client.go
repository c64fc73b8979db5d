package xfer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/embedkit/logfetch/internal/queue"
	"github.com/embedkit/logfetch/logger"
)

// Client drives the request/response state machine for directory listing
// and file download on one open Link.
//
// The session is strictly half-duplex at the application level: at most one
// command is outstanding at a time, and the client never sends a new command
// before the prior response has been fully consumed or has timed out.
// Client is NOT goroutine-safe; the single serial link has no concurrent
// access, so no locking discipline is needed.
type Client struct {
	link    Link
	reader  *LineReader
	cfg     *Config
	logger  logger.Logger
	fs      afero.Fs
	metrics SessionMetrics
}

// NewClient creates a Client for the given open link.
//
// A nil cfg uses defaults. The client takes ownership of the link; Close
// closes it.
func NewClient(link Link, cfg *Config) (*Client, error) {
	if link == nil {
		return nil, errors.New("xfer: link is nil")
	}

	if cfg == nil {
		var err error
		cfg, err = NewConfig()
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		link:   link,
		reader: newLineReader(link, cfg),
		cfg:    cfg,
		logger: cfg.logger,
		fs:     cfg.fs,
	}, nil
}

// Close closes the underlying link. A blocked read on another goroutine
// surfaces as a read failure; this is the only way to cancel mid-transfer
// other than the deadline elapsing.
func (c *Client) Close() error {
	return c.link.Close()
}

// Metrics returns the session metrics.
func (c *Client) Metrics() *SessionMetrics {
	return &c.metrics
}

// RequestList sends the list request and collects the reported files in
// received order. Duplicates are not deduplicated.
//
// A malformed list entry is logged and skipped. An explicit ERR: line
// terminates the listing immediately; the entries collected so far are
// returned together with the *DeviceError. Any other non-LIST line is
// treated as the end-of-listing sentinel.
func (c *Client) RequestList(ctx context.Context) ([]RemoteFile, error) {
	if err := c.reader.SendLine(cmdList); err != nil {
		return nil, err
	}

	var files []RemoteFile

	// The firmware needs a moment after #LIST before the first entry
	// appears; tolerate that startup latency, but only until the grace
	// period elapses, so a truly empty device does not block forever.
	graceDeadline := time.Now().Add(c.cfg.listGracePeriod)

	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		line, err := c.reader.ReadLine(time.Now().Add(c.cfg.listPollTimeout))
		if err != nil {
			if errors.Is(err, ErrLineTimeout) {
				c.metrics.incLineTimeoutCount()

				if len(files) == 0 && time.Now().Before(graceDeadline) {
					continue
				}

				return files, nil
			}

			return files, err
		}

		c.metrics.incLineRecvCount()

		switch {
		case strings.HasPrefix(line, listPrefix):
			file, perr := parseListLine(line)
			if perr != nil {
				c.metrics.incProtocolErrCount()
				c.logger.Warn("skipping malformed list entry", "line", line, "error", perr)

				continue
			}

			files = append(files, file)

		case strings.HasPrefix(line, errPrefix):
			c.metrics.incDeviceErrCount()
			devErr := &DeviceError{Message: strings.TrimPrefix(line, errPrefix)}
			c.logger.Error("device reported listing error", "message", devErr.Message)

			return files, devErr

		default:
			// The firmware emits no dedicated end marker; any non-LIST,
			// non-ERR line closes the listing.
			c.logger.Debug("listing ended", "line", line, "entries", len(files))

			return files, nil
		}
	}
}

// Download requests one file and writes it under the configured output
// directory, deriving the local name from the final component of the
// announced path only.
//
// The returned result is non-nil even on failure: it carries the bytes
// written so far and, on a short read, points at the partial file left on
// disk for inspection. The error (also stored in result.Err) classifies the
// failure: ErrHeaderTimeout, *DeviceError, ErrUnexpectedHeader, a header
// parse error, *ShortReadError, or *FooterError.
func (c *Client) Download(ctx context.Context, remotePath string) (*DownloadResult, error) {
	res := &DownloadResult{Path: remotePath}

	err := c.download(ctx, remotePath, res)
	res.Err = err

	if err != nil {
		c.metrics.incFileFailCount()
		c.logger.Error("download failed", "path", remotePath, "error", err)
	} else {
		c.metrics.incFileOKCount()
		c.logger.Info("download complete", "path", remotePath, "bytes", res.BytesWritten)
	}

	return res, err
}

func (c *Client) download(ctx context.Context, remotePath string, res *DownloadResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.metrics.incFileReqCount()

	if err := c.reader.SendLine(cmdGet + " " + remotePath); err != nil {
		return err
	}

	// Step 1: header line. Timeout, device error, and protocol violation
	// are distinct failure outcomes.
	hdr, err := c.reader.ReadLine(time.Now().Add(c.cfg.lineTimeout))
	if err != nil {
		if errors.Is(err, ErrLineTimeout) {
			c.metrics.incLineTimeoutCount()

			return fmt.Errorf("%w: %s", ErrHeaderTimeout, remotePath)
		}

		return err
	}

	c.metrics.incLineRecvCount()

	if strings.HasPrefix(hdr, errPrefix) {
		c.metrics.incDeviceErrCount()

		return &DeviceError{Message: strings.TrimPrefix(hdr, errPrefix)}
	}

	if !strings.HasPrefix(hdr, headerPrefix) {
		c.metrics.incProtocolErrCount()

		return fmt.Errorf("%w: got %q for %s", ErrUnexpectedHeader, hdr, remotePath)
	}

	// Step 2: parse the announced (path, size).
	file, err := parseFileHeader(hdr)
	if err != nil {
		c.metrics.incProtocolErrCount()

		return err
	}

	res.Size = file.Size

	// Step 3: destination under the output directory only.
	base, err := outputBaseName(file.Path)
	if err != nil {
		c.metrics.incProtocolErrCount()

		return err
	}

	if err := c.fs.MkdirAll(c.cfg.outputDir, 0o755); err != nil {
		return fmt.Errorf("xfer: create output dir %s: %w", c.cfg.outputDir, err)
	}

	outPath := filepath.Join(c.cfg.outputDir, base)
	res.OutputPath = outPath

	out, err := c.fs.Create(outPath)
	if err != nil {
		return fmt.Errorf("xfer: create %s: %w", outPath, err)
	}

	c.logger.Info("downloading", "path", file.Path, "size", file.Size, "out", outPath)

	// Step 4: exactly size payload bytes under one absolute deadline,
	// written incrementally so a short read leaves the partial file on
	// disk for inspection.
	written, copyErr := c.reader.CopyExact(out, file.Size, time.Now().Add(c.cfg.downloadTimeout))
	res.BytesWritten = written
	c.metrics.addBytesRecvCount(written)

	closeErr := out.Close()

	if copyErr != nil {
		if errors.Is(copyErr, ErrReadTimeout) {
			return &ShortReadError{Path: file.Path, Expected: file.Size, Received: written}
		}

		return copyErr
	}

	if closeErr != nil {
		return fmt.Errorf("xfer: close %s: %w", outPath, closeErr)
	}

	// Step 5: footer. A matched byte count with a missing footer is still
	// untrustworthy; the stream is desynchronized.
	footer, err := c.reader.ReadLine(time.Now().Add(c.cfg.footerTimeout))
	if err != nil {
		if errors.Is(err, ErrLineTimeout) {
			c.metrics.incLineTimeoutCount()
			c.metrics.incProtocolErrCount()

			return &FooterError{Path: file.Path}
		}

		return err
	}

	c.metrics.incLineRecvCount()

	if !strings.HasPrefix(footer, footerPrefix) {
		c.metrics.incProtocolErrCount()

		return &FooterError{Path: file.Path, Line: footer}
	}

	return nil
}

// DownloadAll downloads the given files strictly sequentially on the single
// link. One file's failure does not abort the batch; the batch stops early
// only when ctx is cancelled.
//
// The configured download callback, if any, is invoked after each file.
func (c *Client) DownloadAll(ctx context.Context, files []RemoteFile) *SessionSummary {
	pending := queue.New[RemoteFile](len(files))
	for _, f := range files {
		pending.Enqueue(f)
	}

	summary := &SessionSummary{}

	for {
		file, ok := pending.Dequeue()
		if !ok {
			break
		}

		res, err := c.Download(ctx, file.Path)
		summary.add(res)

		if c.cfg.downloadCallback != nil {
			c.cfg.downloadCallback(res)
		}

		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			c.logger.Warn("batch cancelled", "pending", pending.Len())

			break
		}
	}

	return summary
}
