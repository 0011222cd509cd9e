package shell

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetRCFilePath returns the path to the shell's rc file under home.
// An empty home means the current user's home directory.
func GetRCFilePath(shell ShellType, home string) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
	}

	switch shell {
	case ShellBash:
		return filepath.Join(home, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(home, ".zshrc"), nil
	case ShellFish:
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// RCFileExists checks if the rc file exists. Symlinked rc files are
// refused since the rename in AddPathLine would replace the link.
func RCFileExists(rcPath string) (bool, error) {
	info, err := os.Lstat(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to stat file",
			Cause:   err,
		}
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "refusing to modify a symlinked rc file",
		}
	}
	if !info.Mode().IsRegular() {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "not a regular file",
		}
	}

	return true, nil
}

// CreateRCFile creates an empty rc file and its parent directories
func CreateRCFile(rcPath string) error {
	if err := os.MkdirAll(filepath.Dir(rcPath), 0755); err != nil {
		return &RCFileError{
			Path:    rcPath,
			Message: "failed to create parent directory",
			Cause:   err,
		}
	}

	file, err := os.OpenFile(rcPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &RCFileError{
			Path:    rcPath,
			Message: "failed to create file",
			Cause:   err,
		}
	}
	return file.Close()
}

// HasPathLine checks if the rc file already contains the still marker
func HasPathLine(rcPath string) (bool, error) {
	file, err := os.Open(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to open file",
			Cause:   err,
		}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == ActivationMarker {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	return false, nil
}

// BackupRCFile copies the rc file next to itself with BackupSuffix
func BackupRCFile(rcPath string) (string, error) {
	info, err := os.Stat(rcPath)
	if err != nil {
		return "", &RCFileError{
			Path:    rcPath,
			Message: "failed to stat file for backup",
			Cause:   err,
		}
	}
	content, err := os.ReadFile(rcPath)
	if err != nil {
		return "", &RCFileError{
			Path:    rcPath,
			Message: "failed to read file for backup",
			Cause:   err,
		}
	}

	backupPath := rcPath + BackupSuffix
	if err := os.WriteFile(backupPath, content, info.Mode().Perm()); err != nil {
		return "", &RCFileError{
			Path:    backupPath,
			Message: "failed to write backup file",
			Cause:   err,
		}
	}

	return backupPath, nil
}

// AddPathLine appends the marker and command to the rc file. The file is
// rewritten through a temporary file and renamed into place.
func AddPathLine(rcPath string, command string) error {
	if !isPathCommand(command) {
		return &RCFileError{
			Path:    rcPath,
			Message: fmt.Sprintf("refusing to write unexpected command %q", command),
		}
	}

	exists, err := RCFileExists(rcPath)
	if err != nil {
		return err
	}

	var existing []byte
	mode := os.FileMode(0644)
	if exists {
		info, err := os.Stat(rcPath)
		if err != nil {
			return &RCFileError{Path: rcPath, Message: "failed to stat file", Cause: err}
		}
		mode = info.Mode().Perm()
		existing, err = os.ReadFile(rcPath)
		if err != nil {
			return &RCFileError{
				Path:    rcPath,
				Message: "failed to read existing file",
				Cause:   err,
			}
		}
	}

	dir := filepath.Dir(rcPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to create parent directory", Cause: err}
	}
	tmpFile, err := os.CreateTemp(dir, ".still-tmp-*")
	if err != nil {
		return &RCFileError{
			Path:    rcPath,
			Message: "failed to create temporary file",
			Cause:   err,
		}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	var content strings.Builder
	content.Write(existing)
	if len(existing) > 0 {
		if !strings.HasSuffix(string(existing), "\n") {
			content.WriteString("\n")
		}
		content.WriteString("\n")
	}
	content.WriteString(ActivationMarker + "\n")
	content.WriteString(command + "\n")

	if _, err := tmpFile.WriteString(content.String()); err != nil {
		tmpFile.Close()
		return &RCFileError{
			Path:    rcPath,
			Message: "failed to write PATH line",
			Cause:   err,
		}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &RCFileError{
			Path:    rcPath,
			Message: "failed to sync file",
			Cause:   err,
		}
	}
	if err := tmpFile.Close(); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to close temporary file", Cause: err}
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return &RCFileError{Path: rcPath, Message: "failed to set file mode", Cause: err}
	}

	if err := os.Rename(tmpPath, rcPath); err != nil {
		return &RCFileError{
			Path:    rcPath,
			Message: "failed to rename temp file",
			Cause:   err,
		}
	}

	return nil
}
