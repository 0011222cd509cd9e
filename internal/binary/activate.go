package binary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

// ErrBinaryNotFound means no executable was discovered in an installed
// bottle. The install itself still succeeded.
var ErrBinaryNotFound = errors.New("no executable found")

// Activator exposes an installed tool's executable through a symlink in
// the bin root.
type Activator struct {
	binRoot   string
	exeSuffix string
	logger    zerolog.Logger
}

// NewActivator creates an activator that links into binRoot. exeSuffix is
// the platform's executable suffix (".exe" on Windows, empty elsewhere).
func NewActivator(binRoot, exeSuffix string, logger zerolog.Logger) *Activator {
	return &Activator{binRoot: binRoot, exeSuffix: exeSuffix, logger: logger}
}

// Activate finds the tool's executable under root, marks it 0755 and
// points <binRoot>/<basename> at it. It returns the binary path and the
// link path. ErrBinaryNotFound is returned when discovery finds nothing.
func (a *Activator) Activate(root, toolName string) (binaryPath, linkPath string, err error) {
	binaryPath, err = FindBinary(root, toolName, a.exeSuffix)
	if err != nil {
		return "", "", err
	}

	binaryPath, err = filepath.Abs(binaryPath)
	if err != nil {
		return "", "", installerr.New(installerr.KindFilesystem, "activate", err)
	}

	if err := SetExecutable(binaryPath); err != nil {
		return "", "", installerr.New(installerr.KindFilesystem, "activate", err)
	}

	linkPath, err = a.link(binaryPath)
	if err != nil {
		return "", "", installerr.New(installerr.KindFilesystem, "activate", err)
	}

	a.logger.Debug().Str("binary", binaryPath).Str("link", linkPath).Msg("tool activated")
	return binaryPath, linkPath, nil
}

// link creates or replaces <binRoot>/<basename of target>. The new link is
// created under a temporary name and renamed over the old one.
func (a *Activator) link(target string) (string, error) {
	if err := os.MkdirAll(a.binRoot, 0755); err != nil {
		return "", fmt.Errorf("create bin root: %w", err)
	}

	linkPath := filepath.Join(a.binRoot, filepath.Base(target))
	tmpLink := filepath.Join(a.binRoot, "."+filepath.Base(target)+"."+uuid.NewString()+".tmp")

	if err := os.Symlink(target, tmpLink); err != nil {
		return "", fmt.Errorf("create symlink: %w", err)
	}
	if err := os.Rename(tmpLink, linkPath); err != nil {
		os.Remove(tmpLink)
		return "", fmt.Errorf("replace symlink %s: %w", linkPath, err)
	}
	return linkPath, nil
}

// FindBinary locates the executable for toolName under root.
//
// It looks for root/bin/<toolName> (or <toolName><exeSuffix>), then the
// first executable in root/bin. When root has no bin directory at all, the
// tree is walked in lexical order and the same two checks are applied to
// every directory named "bin". A non-empty exeSuffix also counts files
// carrying that suffix as executable, whatever their mode bits.
func FindBinary(root, toolName, exeSuffix string) (string, error) {
	binDir := filepath.Join(root, "bin")

	if info, err := os.Stat(binDir); err == nil && info.IsDir() {
		if path, ok := findInBin(binDir, toolName, exeSuffix); ok {
			return path, nil
		}
		return "", ErrBinaryNotFound
	}

	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || d.Name() != "bin" {
			return nil
		}
		if p, ok := findInBin(path, toolName, exeSuffix); ok {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", installerr.New(installerr.KindFilesystem, "find binary", err)
	}
	if found == "" {
		return "", ErrBinaryNotFound
	}
	return found, nil
}

// findInBin applies the name match, then the first-executable fallback.
func findInBin(binDir, toolName, exeSuffix string) (string, bool) {
	names := []string{toolName}
	if exeSuffix != "" {
		names = append(names, toolName+exeSuffix)
	}
	for _, name := range names {
		candidate := filepath.Join(binDir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}

	entries, err := os.ReadDir(binDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		path := filepath.Join(binDir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if isExecutable(info.Mode()) || (exeSuffix != "" && strings.HasSuffix(entry.Name(), exeSuffix)) {
			return path, true
		}
	}
	return "", false
}

func isExecutable(mode fs.FileMode) bool {
	return mode.Perm()&0111 != 0
}
