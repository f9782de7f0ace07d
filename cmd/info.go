package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/springcard/sscp-host/commands"
	"github.com/springcard/sscp-host/output"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Read the reader's firmware, serial number and capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := connectAndAuthenticate()
		if err != nil {
			return err
		}
		defer session.Close()

		info, err := commands.GetInfos(session)
		if err != nil {
			return fmt.Errorf("GetInfos: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		output.PrintDeviceInfo(info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
