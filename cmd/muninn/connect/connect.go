// Package connectcmder provides the connect command for linking memories.
package connectcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
	"github.com/papercomputeco/muninn/pkg/memory"
)

type connectCommander struct {
	relation string
}

const connectLongDesc string = `Link two memories with a typed, directed edge.

Connecting the same pair with the same relation twice is a no-op.

Example:
  muninn connect m_a1b2c3d4 m_e5f6a7b8
  muninn connect m_a1b2c3d4 m_e5f6a7b8 --relation contradicts`

const connectShortDesc string = "Link two memories"

func NewConnectCmd() *cobra.Command {
	cmder := &connectCommander{}

	cmd := &cobra.Command{
		Use:   "connect <from-id> <to-id>",
		Short: connectShortDesc,
		Long:  connectLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&cmder.relation, "relation", "r", memory.RelationRelated, "Edge relation")

	return cmd
}

func (c *connectCommander) run(cmd *cobra.Command, fromID, toID string) error {
	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Store.Connect(cmd.Context(), fromID, toID, c.relation); err != nil {
		return err
	}
	fmt.Printf("connected %s -[%s]-> %s\n", fromID, c.relation, toID)
	return nil
}
