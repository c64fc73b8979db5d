package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the log files present on the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, portName, err := openClient()
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
			return nil
		}

		renderListing(files)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
