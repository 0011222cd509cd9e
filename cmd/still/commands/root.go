// Package commands implements the CLI commands for still.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/still/internal/config"
	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
	"github.com/ZebulonRouseFrantzich/still/internal/logging"
	"github.com/ZebulonRouseFrantzich/still/internal/platform"
)

// Version is set at build time via -ldflags.
var Version = "v0.1.0-dev"

// CLI represents the command line interface for still.
type CLI struct {
	rootCmd  *cobra.Command
	out      io.Writer
	errOut   io.Writer
	styles   styles
	goos     string
	detector platform.Detector // nil detects the running host

	verbose    int
	configPath string
	profile    platform.Profile
}

// Option customizes a CLI.
type Option func(*CLI)

// WithOutput redirects standard and error output.
func WithOutput(out, errOut io.Writer) Option {
	return func(c *CLI) {
		c.out = out
		c.errOut = errOut
	}
}

// WithDetector replaces host platform detection.
func WithDetector(d platform.Detector) Option {
	return func(c *CLI) {
		c.detector = d
	}
}

// New creates a new CLI instance.
func New(opts ...Option) *CLI {
	c := &CLI{
		out:    os.Stdout,
		errOut: os.Stderr,
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.styles = newStyles(c.out)

	rootCmd := &cobra.Command{
		Use:           "still",
		Short:         "Install precompiled tools from Homebrew bottles",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logging.Setup(c.verbose, c.errOut)
			profile, err := platform.ProfileFor(c.goos)
			if err != nil {
				return err
			}
			c.profile = profile
			return nil
		},
	}
	rootCmd.SetOut(c.out)
	rootCmd.SetErr(c.errOut)

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.PersistentFlags().CountVarP(&c.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default $STILL_CONFIG_DIR/config.lua or XDG config dir)")

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newCatalogCmd())
	rootCmd.AddCommand(c.newPlatformCmd())
	rootCmd.AddCommand(c.newConfigCmd())
	rootCmd.AddCommand(c.newShellInitCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	c.rootCmd = rootCmd
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// PrintError writes err to the error output, with a hint when the default
// roots need elevated privileges.
func (c *CLI) PrintError(err error) {
	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(c.errOut, c.styles.err.Render("Error: "+err.Error()))
	}
	if c.profile.NeedsAdmin && errors.Is(err, fs.ErrPermission) {
		fmt.Fprintf(c.errOut, "Hint: the default roots under %s need administrator rights. "+
			"Re-run with sudo or set tools_root and bin_root in %s.\n", c.profile.Root, config.DefaultPath())
	}
}

// reportedError wraps an error whose details a command already printed.
// PrintError only adds the permission hint for it; ExitCode still sees
// the wrapped kind.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return installerr.KindOf(err).ExitCode()
}

// loadConfig reads the effective configuration for this invocation.
func (c *CLI) loadConfig(ctx context.Context) (*config.Config, error) {
	detector := c.detector
	if detector == nil {
		detector = platform.NewDetector(nil)
	}
	return config.Load(ctx, config.LoadOptions{
		Path:     c.configPath,
		Profile:  c.profile,
		Detector: detector,
		Logger:   logging.GetLogger("config"),
	})
}

// detect runs platform detection with the configured codename table.
func (c *CLI) detect(ctx context.Context, cfg *config.Config) (*platform.Info, error) {
	detector := c.detector
	if detector == nil {
		detector = platform.NewDetector(cfg.Bottles.Codenames)
	}
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	return info, nil
}

// platformKey picks the bottle key: flag, then config, then detection.
func (c *CLI) platformKey(ctx context.Context, cfg *config.Config, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if cfg.Bottles.PlatformKey != "" {
		return cfg.Bottles.PlatformKey, nil
	}
	info, err := c.detect(ctx, cfg)
	if err != nil {
		return "", err
	}
	return info.Key(), nil
}

func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Registry.Timeout()}
}
