// Package muninncmder assembles the muninn command tree.
package muninncmder

import (
	"github.com/spf13/cobra"

	connectcmder "github.com/papercomputeco/muninn/cmd/muninn/connect"
	consolidatecmder "github.com/papercomputeco/muninn/cmd/muninn/consolidate"
	forgetcmder "github.com/papercomputeco/muninn/cmd/muninn/forget"
	procedurescmder "github.com/papercomputeco/muninn/cmd/muninn/procedures"
	recallcmder "github.com/papercomputeco/muninn/cmd/muninn/recall"
	remembercmder "github.com/papercomputeco/muninn/cmd/muninn/remember"
	statscmder "github.com/papercomputeco/muninn/cmd/muninn/stats"
	versioncmder "github.com/papercomputeco/muninn/cmd/version"
)

const muninnLongDesc string = `Muninn is a local-first persistent memory store for AI agents.

Memories are classified as episodic (events), semantic (facts and
preferences), or procedural (workflows), embedded locally, and recalled
with hybrid lexical + semantic ranking.

Common usage:
  muninn remember "Phillip prefers TypeScript strict mode"
  muninn recall "what does Phillip prefer"
  muninn consolidate
  muninn stats`

const muninnShortDesc string = "Muninn - persistent agent memory"

func NewMuninnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "muninn",
		Short:         muninnShortDesc,
		Long:          muninnLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing config.toml")
	cmd.PersistentFlags().String("db", "", "Override the database path")

	// Add subcommands
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(connectcmder.NewConnectCmd())
	cmd.AddCommand(forgetcmder.NewForgetCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(consolidatecmder.NewConsolidateCmd())
	cmd.AddCommand(procedurescmder.NewProceduresCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
