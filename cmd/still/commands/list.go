package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/still/internal/service"
)

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(ctx)
			if err != nil {
				return err
			}

			tools, err := service.NewListService(cfg.ToolsRoot, cfg.BinRoot).List(ctx)
			if err != nil {
				return err
			}
			if len(tools) == 0 {
				fmt.Fprintf(c.out, "No tools installed in %s.\n", cfg.ToolsRoot)
				return nil
			}

			for _, tool := range tools {
				versions := make([]string, len(tool.Versions))
				for i, v := range tool.Versions {
					if v == tool.Active {
						versions[i] = c.styles.ok.Render(v + "*")
					} else {
						versions[i] = v
					}
				}
				fmt.Fprintf(c.out, "%s %s\n", c.styles.header.Render(tool.Name), strings.Join(versions, " "))
			}
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, c.styles.dim.Render("* linked into "+cfg.BinRoot))
			return nil
		},
	}
}
