package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	goos      string
	goarch    string
	codenames CodenameTable
	release   func(ctx context.Context) (platform, family, version string, err error)
}

// NewDetector creates a platform detector for the running host. extra
// entries are layered over DefaultCodenames so new macOS releases can be
// mapped from configuration.
func NewDetector(extra map[string]string) Detector {
	return &RealDetector{
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
		codenames: DefaultCodenames.Merge(extra),
		release:   host.PlatformInformationWithContext,
	}
}

// Detect performs platform detection and returns platform information.
//
// OS release details come from gopsutil on Linux and macOS. If gopsutil
// fails, the release fields stay empty and detection continues; on macOS
// that makes Key fall back to DefaultMacOSCodename.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      d.goos,
		ArchRaw: d.goarch,
	}

	arch, err := normalizeArch(d.goarch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if d.goos != "linux" && d.goos != "darwin" {
		return info, nil
	}

	platform, family, version, err := d.release(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	version = normalizePlatform(version)

	switch d.goos {
	case "linux":
		platform = normalizePlatform(platform)
		if platform != "" {
			info.Platform = platform
			info.Family = mapFamily(family)
			info.Version = version
		}
	case "darwin":
		info.Version = version
		info.Codename = d.codenames.Lookup(version)
	}

	return info, nil
}

// StaticDetector returns a fixed Info. It backs the --platform override
// and tests.
type StaticDetector struct {
	Info *Info
	Err  error
}

// Detect returns the configured Info and error.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	return s.Info, s.Err
}
