package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"council/internal/worldstate"
)

var ingestFaction string

var ingestCmd = &cobra.Command{
	Use:   "ingest <snapshot.json>",
	Short: "Load a campaign snapshot into the campaign database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := worldstate.LoadSnapshot(args[0])
		if err != nil {
			return err
		}

		faction := ingestFaction
		if faction == "" {
			faction = snap.Faction
		}
		if faction == "" {
			return fmt.Errorf("snapshot carries no faction; pass --faction")
		}

		store, err := worldstate.Open(campaignDBPath(faction), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Ingest(cmd.Context(), snap); err != nil {
			return err
		}

		logger.Info("ingest complete",
			zap.String("faction", faction), zap.String("date", snap.Date))
		fmt.Printf("ingested snapshot for %s (%s)\n", faction, snap.Date)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFaction, "faction", "", "override the snapshot's faction slug")
}
