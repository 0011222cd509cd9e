package binary

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
	"github.com/ZebulonRouseFrantzich/still/internal/logging"
	"github.com/ZebulonRouseFrantzich/still/internal/toolspec"
	"github.com/ZebulonRouseFrantzich/still/internal/transaction"
)

// Manager orchestrates resolve, select, fetch, verify, extract and activate
type Manager struct {
	toolsRoot   string
	platformKey string
	lock        bool
	resolver    *formula.Resolver
	selector    formula.Selector
	fetcher     *Fetcher
	extractor   *Extractor
	activator   *Activator
	logger      zerolog.Logger
}

// Config holds configuration for the install manager
type Config struct {
	// ToolsRoot receives <name>/<version>/ install trees
	ToolsRoot string
	// BinRoot receives activation symlinks
	BinRoot string
	// PlatformKey is the bottle key of the target platform (e.g. "arm64_sonoma")
	PlatformKey string
	// Source provides formula metadata (live API or bulk catalog)
	Source formula.Source
	// Selector orders the architecture fallback; the zero value is fine
	Selector formula.Selector
	// Fetcher downloads blobs; nil uses the public registry defaults
	Fetcher *Fetcher
	// ExeSuffix is the platform's executable suffix, tried during activation
	ExeSuffix string
	// Lock serializes installs of the same tool and version across processes
	Lock   bool
	Logger zerolog.Logger
}

// NewManager creates a new install manager
func NewManager(config Config) (*Manager, error) {
	if config.ToolsRoot == "" {
		return nil, fmt.Errorf("ToolsRoot is required")
	}
	if config.BinRoot == "" {
		return nil, fmt.Errorf("BinRoot is required")
	}
	if config.PlatformKey == "" {
		return nil, fmt.Errorf("PlatformKey is required")
	}
	if config.Source == nil {
		return nil, fmt.Errorf("Source is required")
	}

	fetcher := config.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(FetcherConfig{Logger: config.Logger})
	}

	return &Manager{
		toolsRoot:   config.ToolsRoot,
		platformKey: config.PlatformKey,
		lock:        config.Lock,
		resolver:    formula.NewResolver(config.Source, config.Logger),
		selector:    config.Selector,
		fetcher:     fetcher,
		extractor:   NewExtractor(config.Logger),
		activator:   NewActivator(config.BinRoot, config.ExeSuffix, config.Logger),
		logger:      config.Logger,
	}, nil
}

// InstallPath returns the directory a tool version is installed into.
func (m *Manager) InstallPath(name, version string) string {
	return filepath.Join(m.toolsRoot, name, version)
}

// Install runs the full pipeline for spec. Every stage failure aborts the
// install; a missing executable only adds a warning to the result.
func (m *Manager) Install(ctx context.Context, spec toolspec.Specifier) (*InstallResult, error) {
	startTime := time.Now()
	logger := m.logger.With().Str("tool", spec.Name).Logger()
	done := logging.LogOperationStart(logger, "install")
	defer done()

	resolution, err := m.resolver.Resolve(ctx, spec.Name, spec.Version)
	if err != nil {
		return nil, err
	}
	record := resolution.Record
	warnings := append([]string(nil), resolution.Warnings...)

	key, bottle, err := m.selector.Select(record.Bottles, m.platformKey)
	if err != nil {
		return nil, fmt.Errorf("select bottle for %s: %w", record.Name, err)
	}
	logger.Info().Str("version", record.StableVersion).Str("bottle", key).Msg("resolved bottle")

	installPath := m.InstallPath(record.Name, record.StableVersion)

	if m.lock {
		lock, err := transaction.Wait(ctx, filepath.Join(m.toolsRoot, ".locks"),
			transaction.LockName(record.Name, record.StableVersion), transaction.DefaultPollInterval)
		if err != nil {
			return nil, installerr.New(installerr.KindFilesystem, "acquire install lock", err)
		}
		defer lock.Release()
	}

	blob, err := m.fetcher.Fetch(ctx, bottle, record.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", record.Name, err)
	}

	if err := VerifyDigest(blob.Data, blob.Digest); err != nil {
		return nil, fmt.Errorf("verify %s: %w", record.Name, err)
	}

	if err := m.extractor.Extract(blob.Data, installPath); err != nil {
		return nil, fmt.Errorf("extract %s: %w", record.Name, err)
	}

	result := &InstallResult{
		ToolName:    record.Name,
		Version:     record.StableVersion,
		PlatformKey: key,
		InstallPath: installPath,
	}

	binaryPath, linkPath, err := m.activator.Activate(installPath, record.Name)
	switch {
	case errors.Is(err, ErrBinaryNotFound):
		msg := fmt.Sprintf("no executable found for %s in %s; nothing was linked", record.Name, installPath)
		warnings = append(warnings, msg)
		logger.Warn().Str("path", installPath).Msg("no executable found")
	case err != nil:
		return nil, fmt.Errorf("activate %s: %w", record.Name, err)
	default:
		result.BinaryPath = binaryPath
		result.LinkPath = linkPath
	}

	result.Warnings = warnings
	result.Duration = time.Since(startTime)
	return result, nil
}
