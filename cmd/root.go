// Package cmd provides the command-line interface for logfetch, the serial
// log-retrieval tool. It implements subcommands for listing and downloading
// device log files using the Cobra CLI framework.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/embedkit/logfetch/logger"
	"github.com/embedkit/logfetch/serialport"
	"github.com/embedkit/logfetch/xfer"
)

var (
	flagPort    string
	flagBaud    int
	flagOut     string
	flagVerbose bool
)

// Exit codes by failure class, so scripts can distinguish outcomes.
const (
	exitLinkOpen = 1
	exitListing  = 2
	exitBatch    = 3
)

// exitError carries the process exit code for a classified failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "logfetch",
	Short: "Retrieve diagnostic log files from an embedded device over serial",
	Long: `logfetch talks to the device's log server over a serial link: it lists
the files stored on the device flash filesystem and downloads them with
integrity checking to a local directory.

The serial port is auto-detected when --port is not given, preferring USB
CDC/UART bridges.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI application and exits with the code matching the
// failure class: 1 link-open failure, 2 listing failure or empty listing,
// 3 partial or full batch failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		os.Exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "Serial port name (auto-detected when empty)")
	rootCmd.PersistentFlags().IntVar(&flagBaud, "baud", 115200, "Baud rate, matching the device UART")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", xfer.DefaultOutputDir, "Directory downloaded files are written to")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// openClient resolves the serial port, opens the link, and builds the
// transfer client on top of it.
func openClient(opts ...xfer.Option) (*xfer.Client, string, error) {
	if flagVerbose {
		logger.SetLevel(logger.DebugLevel)
	}

	portName := flagPort
	if portName == "" {
		name, err := serialport.Detect()
		if err != nil {
			return nil, "", &exitError{
				code: exitLinkOpen,
				err:  fmt.Errorf("no serial port found, specify one with --port: %w", err),
			}
		}
		portName = name
		pterm.Info.Printfln("Auto-detected port %s", portName)
	}

	port, err := serialport.Open(portName, flagBaud)
	if err != nil {
		return nil, "", &exitError{code: exitLinkOpen, err: err}
	}

	opts = append([]xfer.Option{xfer.WithOutputDir(flagOut)}, opts...)

	cfg, err := xfer.NewConfig(opts...)
	if err != nil {
		_ = port.Close()
		return nil, "", err
	}

	client, err := xfer.NewClient(port, cfg)
	if err != nil {
		_ = port.Close()
		return nil, "", err
	}

	return client, portName, nil
}
