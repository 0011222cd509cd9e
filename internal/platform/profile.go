package platform

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
)

// OSKind tags a Profile.
type OSKind int

const (
	MacOS OSKind = iota + 1
	Linux
	Windows
)

func (k OSKind) String() string {
	switch k {
	case MacOS:
		return "macos"
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	default:
		return "unknown"
	}
}

// Profile holds the per-OS install layout. It is resolved once at startup
// and passed into the pipeline as plain configuration.
type Profile struct {
	Kind       OSKind
	Root       string // still's own root directory
	ToolsRoot  string // <ToolsRoot>/<tool>/<version>/
	BinRoot    string // activation symlinks
	CacheDir   string // bulk catalog and other cached downloads
	ConfigDir  string // config.lua lives here
	NeedsAdmin bool   // default roots require elevated privileges
	ExeSuffix  string
}

// CatalogPath is the default location of the cached bulk formula catalog.
func (p Profile) CatalogPath() string {
	return filepath.Join(p.CacheDir, "formula.json")
}

// ProfileFor resolves the profile for a GOOS value. User directories come
// from xdg and honor XDG_* overrides at call time.
func ProfileFor(goos string) (Profile, error) {
	xdg.Reload()

	cacheDir := filepath.Join(xdg.CacheHome, "still")
	configDir := filepath.Join(xdg.ConfigHome, "still")

	switch goos {
	case "darwin":
		root := filepath.Join(xdg.Home, ".still")
		return Profile{
			Kind:      MacOS,
			Root:      root,
			ToolsRoot: filepath.Join(root, "tools"),
			BinRoot:   filepath.Join(xdg.Home, ".local", "bin"),
			CacheDir:  cacheDir,
			ConfigDir: configDir,
		}, nil
	case "linux":
		return Profile{
			Kind:       Linux,
			Root:       "/opt/still",
			ToolsRoot:  "/opt/still/tools",
			BinRoot:    "/opt/still/bin",
			CacheDir:   cacheDir,
			ConfigDir:  configDir,
			NeedsAdmin: true,
		}, nil
	case "windows":
		return Profile{
			Kind:      Windows,
			Root:      `C:\still`,
			ToolsRoot: `C:\still\tools`,
			BinRoot:   `C:\still\bin`,
			CacheDir:  cacheDir,
			ConfigDir: configDir,
			ExeSuffix: ".exe",
		}, nil
	default:
		return Profile{}, fmt.Errorf("unsupported operating system: %s", goos)
	}
}
