package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/logging"
)

func (c *CLI) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the cached formula catalog used by --offline",
	}
	cmd.AddCommand(c.newCatalogUpdateCmd())
	return cmd
}

func (c *CLI) newCatalogUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download the bulk formula catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(ctx)
			if err != nil {
				return err
			}

			catalog := formula.NewCatalog(formula.CatalogConfig{
				Path:       cfg.Catalog.Path,
				Keyring:    cfg.Catalog.Keyring,
				SourceURL:  cfg.Registry.FormulaAPI + ".json",
				UserAgent:  cfg.Registry.UserAgent,
				HTTPClient: httpClient(cfg),
				Logger:     logging.GetLogger("catalog"),
			})
			result, err := catalog.Update(ctx)
			if err != nil {
				return err
			}

			signed := "unsigned"
			if result.Signed {
				signed = "signature verified"
			}
			fmt.Fprintf(c.out, "%s catalog updated: %d formulas, %d bytes %s\n",
				c.styles.ok.Render("✓"), result.Records, result.Bytes, c.styles.dim.Render("("+signed+")"))
			fmt.Fprintf(c.out, "  path: %s\n", result.Path)
			return nil
		},
	}
}
