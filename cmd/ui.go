package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/embedkit/logfetch/xfer"
)

// renderListing prints the remote files as an indexed table.
func renderListing(files []xfer.RemoteFile) {
	data := pterm.TableData{{"#", "Path", "Size"}}
	for i, f := range files {
		data = append(data, []string{strconv.Itoa(i), f.Path, humanSize(f.Size)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// promptSelection reads a space-separated list of listing indexes from stdin.
// Invalid indexes are reported and skipped.
func promptSelection(files []xfer.RemoteFile) ([]xfer.RemoteFile, error) {
	fmt.Print("Indexes to download (space-separated, e.g. 0 2 3) > ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, nil
	}

	var targets []xfer.RemoteFile
	for _, field := range strings.Fields(line) {
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 0 || idx >= len(files) {
			pterm.Warning.Printfln("Ignoring invalid index %q", field)
			continue
		}
		targets = append(targets, files[idx])
	}

	return targets, nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
