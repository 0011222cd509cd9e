package platform

import (
	"fmt"
	"maps"
	"strings"
)

// DefaultMacOSCodename is used when the macOS release cannot be detected or
// is not in the codename table.
const DefaultMacOSCodename = "sonoma"

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// DefaultCodenames maps macOS release prefixes to bottle codenames.
// Releases before 11 are keyed by major.minor.
var DefaultCodenames = CodenameTable{
	"10.15": "catalina",
	"11":    "big_sur",
	"12":    "monterey",
	"13":    "ventura",
	"14":    "sonoma",
	"15":    "sequoia",
	"26":    "tahoe",
}

// CodenameTable maps a macOS release prefix ("14", "10.15") to a codename.
type CodenameTable map[string]string

// Merge returns a copy of t with extra layered on top.
func (t CodenameTable) Merge(extra map[string]string) CodenameTable {
	merged := make(CodenameTable, len(t)+len(extra))
	maps.Copy(merged, t)
	for k, v := range extra {
		merged[strings.TrimSpace(k)] = normalizePlatform(v)
	}
	return merged
}

// Lookup returns the codename for a macOS release such as "14.5" or
// "10.15.7". It tries major.minor first, then major. Unknown releases
// return "".
func (t CodenameTable) Lookup(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	parts := strings.Split(version, ".")
	if len(parts) >= 2 {
		if name, ok := t[parts[0]+"."+parts[1]]; ok {
			return name
		}
	}
	return t[parts[0]]
}

// normalizeArch converts GOARCH values to normalized architecture names.
// Only amd64 and arm64 have bottles.
func normalizeArch(arch string) (string, error) {
	switch arch {
	case "amd64", "x86_64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s (bottles exist for amd64 and arm64 only)", arch)
	}
}

// BottleArch maps a normalized architecture to the prefix used in bottle
// keys.
func BottleArch(arch string) string {
	switch arch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	default:
		return arch
	}
}

// ArchFromKey returns the architecture prefix of a bottle key
// ("arm64_sonoma" -> "arm64", "x86_64_linux" -> "x86_64").
func ArchFromKey(key string) string {
	for _, prefix := range []string{"x86_64", "arm64"} {
		if key == prefix || strings.HasPrefix(key, prefix+"_") {
			return prefix
		}
	}
	return ""
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
