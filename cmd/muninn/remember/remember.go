// Package remembercmder provides the remember command for storing memories.
package remembercmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/store"
)

type rememberCommander struct {
	memType  string
	topics   []string
	salience float64
}

const rememberLongDesc string = `Store one memory.

Without --type the content router classifies the text as episodic,
semantic, or procedural. Entities are extracted automatically and
procedural content also yields an executable procedure.

Example:
  muninn remember "Yesterday we met with the design team"
  muninn remember "Phillip prefers dark mode" --type semantic
  muninn remember "First run the tests, then deploy" --salience 0.8`

const rememberShortDesc string = "Store a memory"

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <content>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.memType, "type", "t", "", "Memory type (episodic|semantic|procedural); inferred when omitted")
	cmd.Flags().StringSliceVar(&cmder.topics, "topic", nil, "Topic tags")
	cmd.Flags().Float64VarP(&cmder.salience, "salience", "s", memory.DefaultSalience, "Importance in [0,1]")

	return cmd
}

func (c *rememberCommander) run(cmd *cobra.Command, content string) error {
	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	salience := c.salience
	result, err := session.Store.Remember(cmd.Context(), store.RememberInput{
		Content:  content,
		Type:     memory.Type(c.memType),
		Topics:   c.topics,
		Salience: &salience,
	})
	if err != nil {
		return err
	}

	fmt.Printf("remembered %s as %s\n", result.Memory.ID, result.Memory.Type)
	if result.Routing != nil {
		fmt.Printf("  %s\n", result.Routing.Reasoning)
	}
	if len(result.Memory.Entities) > 0 {
		fmt.Printf("  entities: %v\n", result.Memory.Entities)
	}
	if result.Procedure != nil {
		fmt.Printf("  procedure %s (%d steps)\n", result.Procedure.ID, len(result.Procedure.Steps))
	}
	return nil
}
