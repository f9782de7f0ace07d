package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/springcard/sscp-host/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate to the reader and print session statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := connectAndAuthenticate()
		if err != nil {
			return err
		}
		defer session.Close()

		if jsonOutput {
			data, err := json.MarshalIndent(session.Stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		output.PrintSessionStats(&session.Stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
