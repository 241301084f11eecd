// Package procedurescmder provides commands for inspecting and giving
// feedback on stored procedures.
package procedurescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
	"github.com/papercomputeco/muninn/pkg/utils"
)

const proceduresLongDesc string = `Inspect and evolve stored procedures.

Procedures are extracted from procedural memories. Feedback about
executions drives their evolution: three successes promote a procedure to
a reliable workflow, a failure creates a new version with the failed step
annotated.

Example:
  muninn procedures list
  muninn procedures feedback proc_a1b2c3d4 --success
  muninn procedures feedback proc_a1b2c3d4 --failed-at 2 --note "registry timeout"`

const proceduresShortDesc string = "Inspect and evolve procedures"

func NewProceduresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procedures",
		Short: proceduresShortDesc,
		Long:  proceduresLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newFeedbackCmd())

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored procedures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openstore.FromCommand(cmd)
			if err != nil {
				return err
			}
			defer session.Close()

			procs, err := session.Store.ListProcedures(cmd.Context())
			if err != nil {
				return err
			}
			if len(procs) == 0 {
				fmt.Println("no procedures stored")
				return nil
			}

			for _, p := range procs {
				marker := " "
				if p.Reliable {
					marker = "*"
				}
				fmt.Printf("%s %s v%d  %s (%d steps, %d ok / %d failed)\n",
					marker, p.ID, p.Version, p.Title, len(p.Steps), p.SuccessCount, p.FailureCount)
				for _, step := range p.Steps {
					fmt.Printf("    %d. %s\n", step.Order, utils.Truncate(step.Description, 80))
				}
			}
			return nil
		},
	}
}

type feedbackCommander struct {
	success  bool
	failedAt int
	note     string
}

func newFeedbackCmd() *cobra.Command {
	cmder := &feedbackCommander{}

	cmd := &cobra.Command{
		Use:   "feedback <procedure-id>",
		Short: "Record a procedure execution outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.success, "success", false, "The execution succeeded")
	cmd.Flags().IntVar(&cmder.failedAt, "failed-at", 0, "Step number that failed")
	cmd.Flags().StringVar(&cmder.note, "note", "", "What happened")

	return cmd
}

func (c *feedbackCommander) run(cmd *cobra.Command, id string) error {
	if c.success && c.failedAt > 0 {
		return fmt.Errorf("--success and --failed-at are mutually exclusive")
	}

	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	proc, err := session.Store.ProcedureFeedback(cmd.Context(), id, c.success, c.failedAt, c.note)
	if err != nil {
		return err
	}

	fmt.Printf("%s v%d: %d ok / %d failed", proc.ID, proc.Version, proc.SuccessCount, proc.FailureCount)
	if proc.Reliable {
		fmt.Print(" (reliable)")
	}
	fmt.Println()
	return nil
}
