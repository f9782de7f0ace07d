package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/springcard/sscp-host/commands"
	"github.com/springcard/sscp-host/output"
	"github.com/springcard/sscp-host/sscp"
)

var scanTypeA bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for a card in the reader's field",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := connectAndAuthenticate()
		if err != nil {
			return err
		}
		defer session.Close()

		if scanTypeA {
			raw, err := commands.ScanARaw(session)
			if err == sscp.ErrCardAbsent {
				output.PrintWarning("no ISO14443-A card in the field")
				return nil
			}
			if err != nil {
				return fmt.Errorf("ScanARaw: %w", err)
			}
			if jsonOutput {
				fmt.Printf("{\"raw\":%q}\n", hex.EncodeToString(raw))
				return nil
			}
			output.PrintSuccess(fmt.Sprintf("ISO14443-A raw block: %X", raw))
			return nil
		}

		result, err := commands.ScanGlobal(session)
		if err != nil {
			return fmt.Errorf("ScanGlobal: %w", err)
		}
		if jsonOutput {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		output.PrintScanResult(result)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanTypeA, "raw", false, "restrict the scan to ISO14443-A and return the raw block")
	rootCmd.AddCommand(scanCmd)
}
