// Package recallcmder provides the recall command for querying memories.
package recallcmder

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/muninn/cmd/muninn/openstore"
	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/store"
	"github.com/papercomputeco/muninn/pkg/utils"
)

var (
	rankStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	typeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	contentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type recallCommander struct {
	types []string
	limit int
	quiet bool
	full  bool
}

const recallLongDesc string = `Recall memories relevant to a query.

Ranking blends semantic similarity, lexical match, and salience. When the
embedding provider is unreachable, recall degrades to lexical ranking and
says so. An empty query returns the most salient recent memories.

Example:
  muninn recall "what does Phillip prefer"
  muninn recall "deploy steps" --type procedural
  muninn recall "" --limit 5`

const recallShortDesc string = "Recall relevant memories"

func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringSliceVarP(&cmder.types, "type", "t", nil, "Restrict to memory types")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum results (default 10)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only memory ids, one per line")
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Print full content instead of truncating")

	return cmd
}

func (c *recallCommander) run(cmd *cobra.Command, query string) error {
	session, err := openstore.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	var types []memory.Type
	for _, t := range c.types {
		typ := memory.Type(t)
		if !typ.Valid() {
			return fmt.Errorf("unknown memory type %q", t)
		}
		types = append(types, typ)
	}

	result, err := session.Store.Recall(cmd.Context(), query, store.RecallOptions{
		Types: types,
		Limit: c.limit,
	})
	if err != nil {
		return err
	}

	if c.quiet {
		for _, m := range result.Memories {
			fmt.Println(m.ID)
		}
		return nil
	}

	if result.Degraded {
		fmt.Println(degradedStyle.Render("! embedding provider unavailable, lexical ranking only"))
	}
	if len(result.Memories) == 0 {
		fmt.Println("no memories found")
		return nil
	}

	for i, m := range result.Memories {
		content := m.Content
		if !c.full {
			content = utils.Truncate(content, 120)
		}
		fmt.Printf("%s %s %s\n",
			rankStyle.Render(fmt.Sprintf("%d.", i+1)),
			idStyle.Render(m.ID),
			typeStyle.Render(fmt.Sprintf("[%s, salience %.2f]", m.Type, m.Salience)),
		)
		fmt.Printf("   %s\n", contentStyle.Render(content))
	}
	return nil
}
