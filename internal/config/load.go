package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/platform"
)

// DefaultPath returns the config file location: $STILL_CONFIG_DIR/config.lua
// when the variable is set, else <XDG config home>/still/config.lua.
func DefaultPath() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, ConfigFileName)
	}
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, "still", ConfigFileName)
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file; empty means DefaultPath
	Path     string
	Profile  platform.Profile
	Detector platform.Detector
	Logger   zerolog.Logger
}

// Load returns the effective configuration: the profile defaults with the
// config file layered on top. A missing file at the default location yields
// the defaults; a missing explicit Path is an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	base := Defaults(opts.Profile)

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			opts.Logger.Debug().Str("path", path).Msg("no config file, using defaults")
			return &base, nil
		}
		return nil, err
	}

	for _, finding := range DetectSensitiveData(string(data)) {
		opts.Logger.Warn().
			Str("path", path).
			Int("line", finding.Line).
			Str("preview", finding.Preview).
			Msg(finding.Description)
	}

	opts.Logger.Debug().Str("path", path).Msg("loading config")
	return NewParser(opts.Detector, opts.Logger).ParseString(ctx, string(data), base)
}
