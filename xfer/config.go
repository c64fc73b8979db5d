package xfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/embedkit/logfetch/logger"
)

// Default timeout and limit values for a transfer session.
const (
	// DefaultLineTimeout bounds the wait for a single response line.
	DefaultLineTimeout = 5 * time.Second

	// DefaultListPollTimeout bounds each line poll during listing. Listing
	// responses are expected promptly, so this is shorter than the general
	// line timeout.
	DefaultListPollTimeout = 2 * time.Second

	// DefaultListGracePeriod is how long device-side startup latency is
	// tolerated before an unanswered listing is treated as empty.
	DefaultListGracePeriod = 1 * time.Second

	// DefaultDownloadTimeout is the absolute deadline for one file payload.
	// It is a fixed generous ceiling rather than a per-byte budget, since
	// the dominant cost is link latency, not size.
	DefaultDownloadTimeout = 60 * time.Second

	// DefaultFooterTimeout bounds the wait for the FILEEND footer line.
	DefaultFooterTimeout = 5 * time.Second

	// DefaultReadPollInterval bounds a single blocking read on the link.
	DefaultReadPollInterval = 200 * time.Millisecond

	// DefaultMaxLineLength bounds the bytes accumulated for one line, so an
	// adversarial or corrupted response cannot grow memory unbounded until
	// the read deadline.
	DefaultMaxLineLength = 4096

	// DefaultOutputDir is where downloaded files are written.
	DefaultOutputDir = "./downloaded_logs"
)

// Limits for configurable values.
const (
	MinReadPollInterval = 1 * time.Millisecond
	MaxReadPollInterval = 5 * time.Second

	MinMaxLineLength = 64
	MaxMaxLineLength = 1 << 20
)

// Config holds all configuration for a transfer session.
type Config struct {
	lineTimeout      time.Duration
	listPollTimeout  time.Duration
	listGracePeriod  time.Duration
	downloadTimeout  time.Duration
	footerTimeout    time.Duration
	readPollInterval time.Duration

	maxLineLength int
	outputDir     string

	fs               afero.Fs
	logger           logger.Logger
	downloadCallback func(*DownloadResult)
}

// NewConfig creates a session configuration with defaults, then applies
// opts in order; see the With* functions.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		lineTimeout:      DefaultLineTimeout,
		listPollTimeout:  DefaultListPollTimeout,
		listGracePeriod:  DefaultListGracePeriod,
		downloadTimeout:  DefaultDownloadTimeout,
		footerTimeout:    DefaultFooterTimeout,
		readPollInterval: DefaultReadPollInterval,
		maxLineLength:    DefaultMaxLineLength,
		outputDir:        DefaultOutputDir,
		fs:               afero.NewOsFs(),
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// LineTimeout returns the general response line timeout.
func (cfg *Config) LineTimeout() time.Duration { return cfg.lineTimeout }

// ListPollTimeout returns the per-line poll timeout during listing.
func (cfg *Config) ListPollTimeout() time.Duration { return cfg.listPollTimeout }

// ListGracePeriod returns the startup grace period for the first listing response.
func (cfg *Config) ListGracePeriod() time.Duration { return cfg.listGracePeriod }

// DownloadTimeout returns the absolute payload deadline per file.
func (cfg *Config) DownloadTimeout() time.Duration { return cfg.downloadTimeout }

// FooterTimeout returns the footer line timeout.
func (cfg *Config) FooterTimeout() time.Duration { return cfg.footerTimeout }

// ReadPollInterval returns the per-read poll timeout on the link.
func (cfg *Config) ReadPollInterval() time.Duration { return cfg.readPollInterval }

// MaxLineLength returns the maximum accepted line length in bytes.
func (cfg *Config) MaxLineLength() int { return cfg.maxLineLength }

// OutputDir returns the destination directory for downloaded files.
func (cfg *Config) OutputDir() string { return cfg.outputDir }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithLineTimeout sets the general response line timeout.
func WithLineTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("xfer: line timeout must be positive")
		}
		cfg.lineTimeout = d

		return nil
	})
}

// WithListPollTimeout sets the per-line poll timeout during listing.
func WithListPollTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("xfer: list poll timeout must be positive")
		}
		cfg.listPollTimeout = d

		return nil
	})
}

// WithListGracePeriod sets the startup grace period for the first listing
// response. Zero disables the grace period.
func WithListGracePeriod(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return errors.New("xfer: list grace period must not be negative")
		}
		cfg.listGracePeriod = d

		return nil
	})
}

// WithDownloadTimeout sets the absolute payload deadline per file.
func WithDownloadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("xfer: download timeout must be positive")
		}
		cfg.downloadTimeout = d

		return nil
	})
}

// WithFooterTimeout sets the FILEEND footer line timeout.
func WithFooterTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("xfer: footer timeout must be positive")
		}
		cfg.footerTimeout = d

		return nil
	})
}

// WithReadPollInterval sets the per-read poll timeout on the link.
func WithReadPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinReadPollInterval || d > MaxReadPollInterval {
			return fmt.Errorf("xfer: read poll interval %v out of range [%v, %v]",
				d, MinReadPollInterval, MaxReadPollInterval)
		}
		cfg.readPollInterval = d

		return nil
	})
}

// WithMaxLineLength sets the maximum accepted line length in bytes.
func WithMaxLineLength(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < MinMaxLineLength || n > MaxMaxLineLength {
			return fmt.Errorf("xfer: max line length %d out of range [%d, %d]",
				n, MinMaxLineLength, MaxMaxLineLength)
		}
		cfg.maxLineLength = n

		return nil
	})
}

// WithOutputDir sets the destination directory for downloaded files.
func WithOutputDir(dir string) Option {
	return optFunc(func(cfg *Config) error {
		if dir == "" {
			return errors.New("xfer: output directory must not be empty")
		}
		cfg.outputDir = dir

		return nil
	})
}

// WithFs sets the filesystem downloaded files are written to. Tests use an
// in-memory filesystem.
func WithFs(fs afero.Fs) Option {
	return optFunc(func(cfg *Config) error {
		if fs == nil {
			return errors.New("xfer: filesystem must not be nil")
		}
		cfg.fs = fs

		return nil
	})
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("xfer: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithDownloadCallback sets a callback invoked after each file in a batch
// download, successful or not. Used by the CLI for progress reporting.
func WithDownloadCallback(fn func(*DownloadResult)) Option {
	return optFunc(func(cfg *Config) error {
		cfg.downloadCallback = fn

		return nil
	})
}
