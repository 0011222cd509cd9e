package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/still/internal/binary"
	"github.com/ZebulonRouseFrantzich/still/internal/config"
	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/logging"
	"github.com/ZebulonRouseFrantzich/still/internal/service"
)

type installOptions struct {
	jobs      int
	offline   bool
	platform  string
	toolsRoot string
	binRoot   string
}

func (c *CLI) newInstallCmd() *cobra.Command {
	opts := &installOptions{}
	cmd := &cobra.Command{
		Use:   "install <tool[@version]>...",
		Short: "Install tools from precompiled bottles",
		Long: `Install resolves each tool to its formula, downloads the bottle for this
platform, verifies its sha256 digest, unpacks it under the tools root and
links its executable into the bin root.

Examples: bun@1.3.5, bun@latest, bun (defaults to latest), bun@ (defaults to latest)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 4, "Maximum number of concurrent installs")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Resolve formulas from the cached catalog instead of the API")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "Bottle platform key to install (e.g. arm64_sonoma)")
	cmd.Flags().StringVar(&opts.toolsRoot, "tools-root", "", "Directory receiving <tool>/<version> trees")
	cmd.Flags().StringVar(&opts.binRoot, "bin-root", "", "Directory receiving executable links")
	return cmd
}

func (c *CLI) runInstall(ctx context.Context, args []string, opts *installOptions) error {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := applyRootOverrides(cfg, opts.toolsRoot, opts.binRoot); err != nil {
		return err
	}

	key, err := c.platformKey(ctx, cfg, opts.platform)
	if err != nil {
		return err
	}

	logger := logging.GetLogger("install")
	client := httpClient(cfg)

	var source formula.Source
	if opts.offline || cfg.Catalog.Enabled {
		source = formula.NewCatalog(formula.CatalogConfig{
			Path:    cfg.Catalog.Path,
			Keyring: cfg.Catalog.Keyring,
			Logger:  logging.GetLogger("catalog"),
		})
	} else {
		source = formula.NewClient(formula.ClientConfig{
			BaseURL:    cfg.Registry.FormulaAPI,
			UserAgent:  cfg.Registry.UserAgent,
			HTTPClient: client,
			Logger:     logging.GetLogger("formula"),
		})
	}

	mgr, err := binary.NewManager(binary.Config{
		ToolsRoot:   cfg.ToolsRoot,
		BinRoot:     cfg.BinRoot,
		PlatformKey: key,
		ExeSuffix:   c.profile.ExeSuffix,
		Source:      source,
		Selector:    formula.Selector{Priority: cfg.Bottles.Priority},
		Fetcher: binary.NewFetcher(binary.FetcherConfig{
			TokenURL:   cfg.Registry.TokenURL,
			Service:    cfg.Registry.TokenService,
			Namespace:  cfg.Registry.Namespace,
			UserAgent:  cfg.Registry.UserAgent,
			HTTPClient: client,
			Logger:     logging.GetLogger("fetch"),
		}),
		Lock:   cfg.Install.Lock,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	svc := service.NewInstallService(mgr, nil, logger)
	report, err := svc.Install(ctx, service.InstallRequest{Specs: args, Jobs: opts.jobs})
	if err != nil {
		return err
	}

	for _, o := range report.Outcomes {
		c.printOutcome(o)
	}
	if len(report.Outcomes) > 1 {
		fmt.Fprintln(c.out, c.styles.dim.Render(fmt.Sprintf("%d of %d installed in %s",
			len(report.Outcomes)-len(report.Failed()), len(report.Outcomes), report.Duration.Round(time.Millisecond))))
	}

	if err := report.Err(); err != nil {
		return &reportedError{err: err}
	}
	return nil
}

func (c *CLI) printOutcome(o service.Outcome) {
	if o.Err != nil {
		fmt.Fprintf(c.errOut, "%s %s: %v\n", c.styles.err.Render("✗"), o.Spec, o.Err)
		return
	}

	r := o.Result
	fmt.Fprintf(c.out, "%s %s %s %s\n", c.styles.ok.Render("✓"), c.styles.header.Render(r.ToolName),
		r.Version, c.styles.dim.Render("("+r.PlatformKey+")"))
	fmt.Fprintf(c.out, "  installed: %s\n", r.InstallPath)
	if r.BinaryPath != "" {
		fmt.Fprintf(c.out, "  binary:    %s\n", r.BinaryPath)
		fmt.Fprintf(c.out, "  linked:    %s\n", r.LinkPath)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(c.out, "  %s %s\n", c.styles.warn.Render("warning:"), w)
	}
}

// applyRootOverrides replaces the configured roots with flag values.
func applyRootOverrides(cfg *config.Config, toolsRoot, binRoot string) error {
	for _, o := range []struct {
		value string
		dst   *string
	}{
		{toolsRoot, &cfg.ToolsRoot},
		{binRoot, &cfg.BinRoot},
	} {
		if o.value == "" {
			continue
		}
		abs, err := filepath.Abs(o.value)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", o.value, err)
		}
		*o.dst = abs
	}
	return cfg.Validate()
}
