// Package toolspec parses user-supplied tool specifiers such as "ripgrep",
// "ripgrep@" or "ripgrep@14.1.0".
package toolspec

import (
	"fmt"
	"strings"

	"github.com/blang/semver"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

// Latest is the version requested when none is given.
const Latest = "latest"

const examples = "Examples: bun@1.3.5, bun@latest, bun (defaults to latest), bun@ (defaults to latest)"

// Specifier is a validated tool name and requested version.
type Specifier struct {
	Name    string
	Version string // "latest" or a semantic version
}

// IsLatest reports whether the specifier asks for the current stable version.
func (s Specifier) IsLatest() bool {
	return strings.EqualFold(s.Version, Latest)
}

// String renders the specifier as name@version.
func (s Specifier) String() string {
	return s.Name + "@" + s.Version
}

// Parse validates raw input and returns a Specifier.
// All failures are installerr.KindParse errors.
func Parse(input string) (Specifier, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Specifier{}, parseErr("tool spec cannot be empty. %s", examples)
	}

	if strings.Count(s, "@") > 1 {
		return Specifier{}, parseErr("invalid tool spec %q: expected at most one '@'. %s", s, examples)
	}

	name, version, found := strings.Cut(s, "@")
	if !found || version == "" {
		version = Latest
	}

	if name == "" {
		return Specifier{}, parseErr("invalid tool spec %q: tool name cannot be empty (before '@'). %s", s, examples)
	}

	if err := validateName(name); err != nil {
		return Specifier{}, parseErr("invalid tool name %q: %v. Tool names must match: [a-zA-Z][a-zA-Z0-9_-]*", name, err)
	}

	if strings.EqualFold(version, Latest) {
		return Specifier{Name: name, Version: Latest}, nil
	}

	if _, err := semver.Parse(version); err != nil {
		return Specifier{}, parseErr("invalid version %q for tool %q: %v. Version must be SemVer (e.g. 1.2.3) or \"latest\". %s",
			version, name, err, examples)
	}

	return Specifier{Name: name, Version: version}, nil
}

// MustParse is Parse for static inputs. It panics on error.
func MustParse(input string) Specifier {
	spec, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return spec
}

// validateName checks the [A-Za-z][A-Za-z0-9_-]* shape and names the first
// offending character.
func validateName(name string) error {
	for i, c := range name {
		if i == 0 {
			if !isASCIILetter(c) {
				return fmt.Errorf("must start with a letter, got '%c'", c)
			}
			continue
		}
		if !isASCIILetter(c) && !isASCIIDigit(c) && c != '_' && c != '-' {
			return fmt.Errorf("contains invalid character '%c'", c)
		}
	}
	return nil
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func parseErr(format string, args ...any) error {
	return installerr.Errorf(installerr.KindParse, "parse tool spec", format, args...)
}
