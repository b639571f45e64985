package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"council/internal/actor"
)

var actorsCmd = &cobra.Command{
	Use:   "actors",
	Short: "List the loaded advisor roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := actor.Load(cfg.RosterDir, logger)
		if err != nil {
			return err
		}

		for _, spec := range registry.All() {
			kind := ""
			if spec.Archival() {
				kind = " [archival]"
			}
			fmt.Printf("%-24s max tier %d  interrupt weight %d%s\n",
				spec.DisplayName, spec.MaxTier(), spec.Interrupt.Weight, kind)
			if len(spec.DomainKeywords) > 0 {
				fmt.Printf("  domains: %s\n", strings.Join(spec.DomainKeywords, ", "))
			}
		}
		return nil
	},
}
