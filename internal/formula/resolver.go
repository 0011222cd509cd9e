package formula

import (
	"context"
	"fmt"
	"strings"

	"github.com/blang/semver"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/toolspec"
)

// Resolution is a resolved formula plus any non-fatal findings.
type Resolution struct {
	Record   *Record
	Warnings []string
}

// Resolver maps a tool name and requested version to a formula Record.
type Resolver struct {
	source Source
	logger zerolog.Logger
}

// NewResolver creates a resolver over source.
func NewResolver(source Source, logger zerolog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Resolve looks up name and checks the requested version against the
// formula's stable version. A mismatch is recorded as a warning and
// resolution continues with the stable version.
func (r *Resolver) Resolve(ctx context.Context, name, version string) (*Resolution, error) {
	record, err := r.source.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}

	res := &Resolution{Record: record}

	if version != "" && !strings.EqualFold(version, toolspec.Latest) && !VersionsMatch(version, record.StableVersion) {
		msg := fmt.Sprintf("requested %s@%s but the registry only offers %s; installing %s",
			name, version, record.StableVersion, record.StableVersion)
		res.Warnings = append(res.Warnings, msg)
		r.logger.Warn().
			Str("tool", name).
			Str("requested", version).
			Str("stable", record.StableVersion).
			Msg("requested version differs from stable version")
	}

	return res, nil
}

// VersionsMatch reports whether two version strings are equal as strings
// or as semantic versions. The stable side is parsed tolerantly since
// formula versions are not always strict semver.
func VersionsMatch(requested, stable string) bool {
	if requested == stable {
		return true
	}
	want, err := semver.Parse(requested)
	if err != nil {
		return false
	}
	have, err := semver.ParseTolerant(stable)
	if err != nil {
		return false
	}
	return want.Equals(have)
}
