package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"council/internal/worldstate"
)

var (
	reportFaction string
	reportDate    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the archival world-state report for a campaign",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := worldstate.Open(campaignDBPath(reportFaction), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.Report(cmd.Context(), reportDate)
		if err != nil {
			return err
		}
		if report == "" {
			fmt.Println("(no campaign data)")
			return nil
		}
		fmt.Println(report)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFaction, "faction", "", "campaign faction slug (required)")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "campaign date (required)")
	_ = reportCmd.MarkFlagRequired("faction")
	_ = reportCmd.MarkFlagRequired("date")
}
