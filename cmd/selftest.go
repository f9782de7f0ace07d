package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/springcard/sscp-host/conformance"
	"github.com/springcard/sscp-host/output"
)

var reportPath string

var selfTestCmd = &cobra.Command{
	Use:   "conformance",
	Short: "Run the self-test conformance scenarios against the embedded vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		suite := conformance.NewSuite(conformance.Options{Verbose: !jsonOutput})
		if err := suite.RunAll(); err != nil {
			return err
		}

		if reportPath != "" {
			if err := suite.GenerateReport(reportPath); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
		}

		if jsonOutput {
			return suite.GenerateReport("/dev/stdout")
		}
		output.PrintConformanceReport(suite)

		sum := suite.GetSummary()
		if sum.Failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", sum.Failed, sum.Total)
		}
		return nil
	},
}

func init() {
	selfTestCmd.Flags().StringVar(&reportPath, "report", "", "also write a JSON report to this path")
	rootCmd.AddCommand(selfTestCmd)
}
