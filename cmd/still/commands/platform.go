package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform and install layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(ctx)
			if err != nil {
				return err
			}
			info, err := c.detect(ctx, cfg)
			if err != nil {
				return err
			}
			key, err := c.platformKey(ctx, cfg, "")
			if err != nil {
				return err
			}

			rows := [][2]string{
				{"platform key", key},
				{"os", info.OS},
				{"arch", info.Arch},
			}
			if info.Codename != "" {
				rows = append(rows, [2]string{"codename", info.Codename})
			}
			if info.Platform != "" {
				rows = append(rows, [2]string{"distribution", info.Platform + " (" + info.Family + ")"})
			}
			if info.Version != "" {
				rows = append(rows, [2]string{"release", info.Version})
			}
			rows = append(rows,
				[2]string{"profile", c.profile.Kind.String()},
				[2]string{"tools root", cfg.ToolsRoot},
				[2]string{"bin root", cfg.BinRoot},
				[2]string{"catalog", cfg.Catalog.Path},
			)

			for _, row := range rows {
				fmt.Fprintf(c.out, "%s %s\n", c.styles.dim.Render(fmt.Sprintf("%-13s", row[0]+":")), row[1])
			}
			return nil
		},
	}
}
