// Package shell puts still's bin root on the user's PATH.
//
// Installed tools are activated as symlinks under a single bin root, so one
// PATH entry makes every tool reachable. This package handles:
//   - Detecting the user's shell (bash, zsh, fish)
//   - Locating shell configuration files (rc files)
//   - Generating the PATH line for the bin root
//   - Safely appending that line to an rc file
//
// # Shell Detection
//
// Shell detection tries two methods:
//  1. $SHELL environment variable
//  2. The parent process, inspected through gopsutil
//
// # RC File Management
//
//   - bash: ~/.bashrc
//   - zsh: ~/.zshrc
//   - fish: ~/.config/fish/config.fish
//
// The PATH line is preceded by ActivationMarker. Setup is a no-op when the
// marker is already present, unless forced. Writes go through a temporary
// file that is renamed over the rc file. Symlinked rc files are refused.
//
// # Example Usage
//
//	manager, err := shell.NewManager(shell.Config{BinRoot: "/opt/homebrew/bin"})
//	if err != nil {
//	    return err
//	}
//	result, err := manager.DetectAndSetup(shell.SetupOptions{Backup: true})
package shell
