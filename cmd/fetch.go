package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/embedkit/logfetch/xfer"
)

var fetchAll bool

var fetchCmd = &cobra.Command{
	Use:   "fetch [path ...]",
	Short: "Download log files from the device",
	Long: `fetch requests the device file listing and downloads the selected files
sequentially to the output directory.

Files can be named explicitly by their device path, --all downloads every
listed file, and with no arguments fetch shows the listing and prompts for
an index selection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		progress := func(res *xfer.DownloadResult) {
			if res.Success() {
				pterm.Success.Printfln("%s (%d bytes) -> %s", res.Path, res.BytesWritten, res.OutputPath)
			} else {
				pterm.Error.Printfln("%s: %v", res.Path, res.Err)
			}
		}

		client, portName, err := openClient(xfer.WithDownloadCallback(progress))
		if err != nil {
			return err
		}
		defer client.Close()

		pterm.Info.Printfln("Connected to %s @ %d baud", portName, flagBaud)

		files, err := client.RequestList(cmd.Context())
		if err != nil {
			return &exitError{code: exitListing, err: fmt.Errorf("listing failed: %w", err)}
		}
		if len(files) == 0 {
			pterm.Warning.Println("No log files found on the device")
			return &exitError{code: exitListing, err: errors.New("empty listing")}
		}

		targets, err := selectTargets(files, args)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			pterm.Warning.Println("Nothing selected")
			return nil
		}

		summary := client.DownloadAll(cmd.Context(), targets)

		pterm.Println()
		if summary.Failed == 0 {
			pterm.Success.Printfln("Downloaded %d/%d files to %s", summary.Succeeded, summary.Total(), flagOut)
			return nil
		}

		pterm.Warning.Printfln("Downloaded %d/%d files to %s", summary.Succeeded, summary.Total(), flagOut)

		return &exitError{
			code: exitBatch,
			err:  fmt.Errorf("%d of %d downloads failed", summary.Failed, summary.Total()),
		}
	},
}

// selectTargets picks the files to download: everything with --all, explicit
// device paths from args, or an interactive index selection.
func selectTargets(files []xfer.RemoteFile, args []string) ([]xfer.RemoteFile, error) {
	if fetchAll {
		return files, nil
	}

	if len(args) > 0 {
		byPath := make(map[string]xfer.RemoteFile, len(files))
		for _, f := range files {
			byPath[f.Path] = f
		}

		targets := make([]xfer.RemoteFile, 0, len(args))
		for _, arg := range args {
			f, ok := byPath[arg]
			if !ok {
				return nil, fmt.Errorf("device did not list %q", arg)
			}
			targets = append(targets, f)
		}

		return targets, nil
	}

	renderListing(files)
	return promptSelection(files)
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "Download every file the device lists")
	rootCmd.AddCommand(fetchCmd)
}
