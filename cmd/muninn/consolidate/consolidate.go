// Package consolidatecmder provides the consolidate command.
package consolidatecmder

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
	"github.com/papercomputeco/muninn/pkg/cliui"
	"github.com/papercomputeco/muninn/pkg/consolidate"
	"github.com/papercomputeco/muninn/pkg/dotdir"
)

type consolidateCommander struct {
	watch    bool
	interval time.Duration
}

const consolidateLongDesc string = `Run one consolidation pass over the store.

Consolidation discovers entities in recent episodes, marks aged episodes
for distillation, flags contradictory facts, and links memories that share
entities. With --watch it keeps running on an interval until interrupted.

Example:
  muninn consolidate
  muninn consolidate --watch --interval 30m`

const consolidateShortDesc string = "Consolidate memories in the background"

func NewConsolidateCmd() *cobra.Command {
	cmder := &consolidateCommander{}

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: consolidateShortDesc,
		Long:  consolidateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep consolidating on an interval")
	cmd.Flags().DurationVar(&cmder.interval, "interval", 0, "Interval between runs with --watch (default from config)")

	return cmd
}

func (c *consolidateCommander) run(cmd *cobra.Command) error {
	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	cfg := session.Config.Consolidation
	engine := consolidate.New(session.Store, consolidate.Config{
		BatchSize:       cfg.BatchSize,
		MinDistillAge:   cfg.MinDistillAge,
		EdgeProbability: cfg.EdgeProbability,
	}, nil, session.Logger)

	if c.watch {
		interval := c.interval
		if interval <= 0 {
			interval = cfg.Interval
		}
		fmt.Printf("consolidating every %s, ctrl-c to stop\n", interval)
		scheduler := consolidate.NewScheduler(engine, interval, session.Logger)
		scheduler.Run(cmd.Context())
		return nil
	}

	var result *consolidate.Result
	err = cliui.Step(os.Stderr, "consolidating", func() error {
		var runErr error
		result, runErr = engine.Run(cmd.Context())
		return runErr
	})
	if err != nil {
		return err
	}

	state := &dotdir.RunState{
		RunID:        result.RunID,
		FinishedAt:   time.Now().UTC(),
		Consolidated: result.Consolidated,
		Errors:       result.Errors,
	}
	if err := dotdir.NewManager().SaveRunState(state, session.Dir); err != nil {
		session.Logger.Warn("saving last-run state", zap.Error(err))
	}

	fmt.Printf("run %s\n", result.RunID)
	fmt.Printf("  consolidated:            %d\n", result.Consolidated)
	fmt.Printf("  entities discovered:     %d\n", result.EntitiesDiscovered)
	fmt.Printf("  distillation candidates: %d\n", result.DistillationCandidates)
	fmt.Printf("  contradictions:          %d\n", result.Contradictions)
	fmt.Printf("  connections formed:      %d\n", result.ConnectionsFormed)
	if result.Errors > 0 {
		fmt.Printf("  errors:                  %d\n", result.Errors)
	}
	return nil
}
