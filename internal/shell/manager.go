package shell

import "fmt"

// Manager writes the bin root onto a shell's PATH
type Manager struct {
	binRoot string
	home    string
}

// NewManager creates a new shell manager
func NewManager(config Config) (*Manager, error) {
	if config.BinRoot == "" {
		return nil, fmt.Errorf("BinRoot is required")
	}

	return &Manager{
		binRoot: config.BinRoot,
		home:    config.Home,
	}, nil
}

// Command returns the PATH line for shell without touching any file
func (m *Manager) Command(shell ShellType) (string, error) {
	return PathCommand(shell, m.binRoot)
}

// SetupIntegration adds the PATH line to shell's rc file
func (m *Manager) SetupIntegration(shell ShellType, opts SetupOptions) (*SetupResult, error) {
	command, err := m.Command(shell)
	if err != nil {
		return nil, err
	}

	rcPath, err := GetRCFilePath(shell, m.home)
	if err != nil {
		return nil, fmt.Errorf("get rc file path: %w", err)
	}

	exists, err := RCFileExists(rcPath)
	if err != nil {
		return nil, fmt.Errorf("check rc file: %w", err)
	}

	present := false
	if exists {
		present, err = HasPathLine(rcPath)
		if err != nil {
			return nil, fmt.Errorf("check PATH line: %w", err)
		}
	}

	result := &SetupResult{
		Shell:          shell,
		RCFile:         rcPath,
		AlreadyPresent: present,
		Command:        command,
	}
	if (present && !opts.Force) || opts.DryRun {
		return result, nil
	}

	if !exists {
		if err := CreateRCFile(rcPath); err != nil {
			return nil, fmt.Errorf("create rc file: %w", err)
		}
	} else if opts.Backup {
		result.BackupPath, err = BackupRCFile(rcPath)
		if err != nil {
			return nil, fmt.Errorf("backup rc file: %w", err)
		}
	}

	if err := AddPathLine(rcPath, command); err != nil {
		return nil, fmt.Errorf("add PATH line: %w", err)
	}
	result.Added = true

	return result, nil
}

// DetectAndSetup detects the user's shell and sets up integration
func (m *Manager) DetectAndSetup(opts SetupOptions) (*SetupResult, error) {
	detection, err := DetectShell()
	if err != nil {
		return nil, fmt.Errorf("detect shell: %w", err)
	}

	if !detection.Shell.IsValid() {
		return nil, &UnsupportedShellError{Shell: detection.ShellPath}
	}

	return m.SetupIntegration(detection.Shell, opts)
}
