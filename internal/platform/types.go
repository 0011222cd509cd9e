// Package platform detects the host OS, architecture and OS release, and
// turns them into the bottle platform key used to pick a precompiled
// distribution (e.g. "arm64_sonoma", "x86_64_linux").
//
// It uses gopsutil for OS release detection and falls back gracefully when
// detection fails. It also carries the per-OS install Profile and injects a
// read-only platform table into the Lua configuration.
package platform

import "context"

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64" (normalized)
	ArchRaw  string // original GOARCH
	Platform string // distro ID on Linux (e.g. "ubuntu"), empty elsewhere
	Family   string // canonical Linux family (e.g. "debian")
	Version  string // OS release (e.g. "22.04", "14.5")
	Codename string // macOS codename (e.g. "sonoma"), empty elsewhere
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information on Linux, nil elsewhere or when
// distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == "darwin" && i.Arch == "arm64"
}

// Key returns the bottle platform key for this host.
//
//	darwin/arm64 on 14.x  -> "arm64_sonoma"
//	linux/amd64           -> "x86_64_linux"
//	windows/amd64         -> "x86_64_windows"
//
// An undetected macOS release uses DefaultMacOSCodename.
func (i *Info) Key() string {
	arch := BottleArch(i.Arch)
	if i.IsMacOS() {
		codename := i.Codename
		if codename == "" {
			codename = DefaultMacOSCodename
		}
		return arch + "_" + codename
	}
	return arch + "_" + i.OS
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
