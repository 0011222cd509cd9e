package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/still/internal/shell"
)

func (c *CLI) newShellInitCmd() *cobra.Command {
	var (
		shellName string
		write     bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "shell-init",
		Short: "Put the bin root on PATH",
		Long: `Print the shell line that adds the bin root to PATH, for example:

  eval "$(still shell-init --shell bash)"

With --write the line is appended to the shell's rc file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			mgr, err := shell.NewManager(shell.Config{BinRoot: cfg.BinRoot})
			if err != nil {
				return err
			}

			sh := shell.ShellType(shellName)
			if shellName == "" {
				detection, err := shell.DetectShell()
				if err != nil {
					return err
				}
				if !detection.Shell.IsValid() {
					return fmt.Errorf("could not detect your shell; pass --shell (bash, zsh, fish)")
				}
				sh = detection.Shell
			}

			if !write {
				line, err := mgr.Command(sh)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, line)
				return nil
			}

			result, err := mgr.SetupIntegration(sh, shell.SetupOptions{Backup: true, DryRun: dryRun})
			if err != nil {
				return err
			}
			switch {
			case result.AlreadyPresent:
				fmt.Fprintf(c.out, "%s is already set up\n", result.RCFile)
			case dryRun:
				fmt.Fprintf(c.out, "would append to %s:\n  %s\n", result.RCFile, result.Command)
			default:
				fmt.Fprintf(c.out, "%s added %s to PATH in %s\n", c.styles.ok.Render("✓"), cfg.BinRoot, result.RCFile)
				if result.BackupPath != "" {
					fmt.Fprintf(c.out, "  backup: %s\n", result.BackupPath)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shellName, "shell", "", "Shell to configure: bash, zsh or fish (default: detected)")
	cmd.Flags().BoolVar(&write, "write", false, "Append the line to the shell's rc file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "With --write, show what would change")
	return cmd
}
