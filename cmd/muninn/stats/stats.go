// Package statscmder provides the stats command.
package statscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
	"github.com/papercomputeco/muninn/pkg/dotdir"
	"github.com/papercomputeco/muninn/pkg/memory"
)

const statsLongDesc string = `Show aggregate counts for the memory store.

Example:
  muninn stats`

const statsShortDesc string = "Show store statistics"

func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, _ []string) error {
	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	stats, err := session.Store.GetStats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("memories:   %d\n", stats.Total)
	for _, typ := range memory.Types {
		fmt.Printf("  %-10s %d\n", string(typ)+":", stats.ByType[typ])
	}
	fmt.Printf("entities:   %d\n", stats.Entities)
	fmt.Printf("edges:      %d\n", stats.Edges)
	fmt.Printf("procedures: %d\n", stats.Procedures)

	if last, err := dotdir.NewManager().LoadRunState(session.Dir); err == nil && last != nil {
		fmt.Printf("last consolidation: %s (%s)\n",
			last.FinishedAt.Local().Format("2006-01-02 15:04"), last.RunID)
	}
	return nil
}
