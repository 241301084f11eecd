// Package forgetcmder provides the forget command for removing memories.
package forgetcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
)

type forgetCommander struct {
	hard bool
}

const forgetLongDesc string = `Remove a memory.

By default the memory is tombstoned: it stops appearing in recall and
stats but the row survives. With --hard the row, its vector index entry,
and its edges are deleted permanently.

Example:
  muninn forget m_a1b2c3d4
  muninn forget m_a1b2c3d4 --hard`

const forgetShortDesc string = "Remove a memory"

func NewForgetCmd() *cobra.Command {
	cmder := &forgetCommander{}

	cmd := &cobra.Command{
		Use:   "forget <id>",
		Short: forgetShortDesc,
		Long:  forgetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.hard, "hard", false, "Delete the row permanently")

	return cmd
}

func (c *forgetCommander) run(cmd *cobra.Command, id string) error {
	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Store.Forget(cmd.Context(), id, c.hard); err != nil {
		return err
	}
	if c.hard {
		fmt.Printf("forgot %s permanently\n", id)
	} else {
		fmt.Printf("forgot %s\n", id)
	}
	return nil
}
