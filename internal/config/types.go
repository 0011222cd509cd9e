package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/still/internal/binary"
	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/platform"
)

// Config represents the complete still configuration.
type Config struct {
	// ToolsRoot receives <name>/<version>/ install trees (supports ~)
	ToolsRoot string `json:"tools_root"`

	// BinRoot receives activation symlinks (supports ~)
	BinRoot string `json:"bin_root"`

	Registry Registry `json:"registry"`
	Catalog  Catalog  `json:"catalog"`
	Bottles  Bottles  `json:"bottles"`
	Install  Install  `json:"install"`
}

// Registry holds the metadata and blob endpoints.
type Registry struct {
	FormulaAPI   string `json:"formula_api"`
	TokenURL     string `json:"token_url"`
	TokenService string `json:"token_service"`
	Namespace    string `json:"namespace"`
	UserAgent    string `json:"user_agent"`

	// TimeoutSeconds bounds each HTTP request; 0 keeps the transport default
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (r Registry) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Catalog configures the local bulk formula catalog.
type Catalog struct {
	// Enabled makes installs resolve from the catalog instead of the live API
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	// Keyring is an OpenPGP public keyring; when set the catalog signature is required
	Keyring string `json:"keyring,omitempty"`
}

// Bottles tunes bottle selection.
type Bottles struct {
	// PlatformKey overrides the detected key (e.g. "arm64_sonoma")
	PlatformKey string   `json:"platform_key,omitempty"`
	Priority    []string `json:"priority,omitempty"`
	// Codenames extends the built-in macOS major version → codename table
	Codenames map[string]string `json:"codenames,omitempty"`
}

// Install holds pipeline options.
type Install struct {
	// Lock serializes installs of the same tool and version across processes
	Lock bool `json:"lock"`
}

// Defaults returns the configuration used when no file overrides it.
func Defaults(profile platform.Profile) Config {
	return Config{
		ToolsRoot: profile.ToolsRoot,
		BinRoot:   profile.BinRoot,
		Registry: Registry{
			FormulaAPI:   formula.DefaultAPI,
			TokenURL:     binary.DefaultTokenURL,
			TokenService: binary.DefaultTokenService,
			Namespace:    binary.DefaultNamespace,
			UserAgent:    binary.DefaultUserAgent,
		},
		Catalog: Catalog{
			Path: profile.CatalogPath(),
		},
		Bottles: Bottles{
			Priority: append([]string(nil), DefaultPriority...),
		},
	}
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	roots := []struct {
		field string
		value string
	}{
		{luaFieldToolsRoot, c.ToolsRoot},
		{luaFieldBinRoot, c.BinRoot},
	}
	for _, root := range roots {
		if err := validateRoot(root.value); err != nil {
			return &ValidationError{Field: root.field, Message: err.Error()}
		}
	}

	urls := []struct {
		field string
		value string
	}{
		{luaFieldRegistry + "." + luaFieldFormulaAPI, c.Registry.FormulaAPI},
		{luaFieldRegistry + "." + luaFieldTokenURL, c.Registry.TokenURL},
	}
	for _, u := range urls {
		if err := validateHTTPURL(u.value); err != nil {
			return &ValidationError{Field: u.field, Message: err.Error()}
		}
	}

	if c.Registry.TimeoutSeconds < 0 {
		return &ValidationError{
			Field:   luaFieldRegistry + "." + luaFieldTimeoutSeconds,
			Message: fmt.Sprintf("must not be negative (got %d)", c.Registry.TimeoutSeconds),
		}
	}

	if c.Catalog.Enabled && c.Catalog.Path == "" {
		return &ValidationError{
			Field:   luaFieldCatalog + "." + luaFieldPath,
			Message: "required when the catalog is enabled",
		}
	}

	for i, codename := range c.Bottles.Priority {
		if strings.TrimSpace(codename) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("%s.%s[%d]", luaFieldBottles, luaFieldPriority, i+1),
				Message: "codename cannot be empty",
			}
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

func validateRoot(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %s)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}
	return nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// expandPaths applies expandHome to every path field.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.ToolsRoot, &c.BinRoot, &c.Catalog.Path, &c.Catalog.Keyring} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}
