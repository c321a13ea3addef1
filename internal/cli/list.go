package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks in execution order with their dependencies",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.pipeline().Graph()
			if err != nil {
				return err
			}
			width := 0
			for _, n := range g.Nodes() {
				width = max(width, len(n.Name))
			}
			for _, name := range g.TopologicalOrder() {
				n, _ := g.Node(name)
				line := name
				if len(n.Task.Deps) > 0 {
					line = padRight(name, width) + "  <- " + strings.Join(n.Task.Deps, ", ")
				}
				a.printf("%s\n", line)
			}
			return nil
		},
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
