package formula

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

// maxSkipWarnings caps the per-record warnings logged during one scan.
const maxSkipWarnings = 3

// CatalogConfig configures a bulk catalog.
type CatalogConfig struct {
	Path       string // cached JSON array of formula objects
	Keyring    string // OpenPGP keyring; empty disables signature checks
	SourceURL  string // bulk endpoint used by Update, e.g. DefaultAPI + ".json"
	UserAgent  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Catalog resolves formulas from a locally cached bulk catalog.
type Catalog struct {
	path      string
	keyring   string
	sourceURL string
	userAgent string
	http      *http.Client
	logger    zerolog.Logger
}

// NewCatalog creates a catalog backed by cfg.Path.
func NewCatalog(cfg CatalogConfig) *Catalog {
	c := &Catalog{
		path:      cfg.Path,
		keyring:   cfg.Keyring,
		sourceURL: cfg.SourceURL,
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}
	if c.sourceURL == "" {
		c.sourceURL = DefaultAPI + ".json"
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return c.path
}

// SignaturePath returns the location of the detached catalog signature.
func (c *Catalog) SignaturePath() string {
	return c.path + ".sig"
}

// Lookup scans the cached catalog for the first record matching name.
func (c *Catalog) Lookup(ctx context.Context, name string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, installerr.New(installerr.KindFilesystem, "read catalog", err)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, installerr.Errorf(installerr.KindFilesystem, "read catalog",
				"catalog %s does not exist (run 'still catalog update'): %w", c.path, err)
		}
		return nil, installerr.New(installerr.KindFilesystem, "read catalog", err)
	}

	if c.keyring != "" {
		sig, err := os.ReadFile(c.SignaturePath())
		if err != nil {
			return nil, installerr.New(installerr.KindIntegrity, "verify catalog", fmt.Errorf("read signature: %w", err))
		}
		if err := c.verify(data, sig); err != nil {
			return nil, err
		}
	}

	record, err := scanCatalog(data, name, c.logger)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, installerr.Errorf(installerr.KindNotFound, "lookup formula", "no formula named %q in catalog", name)
	}
	return record, nil
}

// scanCatalog walks a JSON array of formula objects and returns the first
// record matching name, or nil. Elements that fail to decode are skipped.
// A top level that is not an array is fatal.
func scanCatalog(data []byte, name string, logger zerolog.Logger) (*Record, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, installerr.New(installerr.KindNetwork, "decode formula", fmt.Errorf("catalog is not a JSON array: %w", err))
	}

	skipped := 0
	defer func() {
		if skipped > maxSkipWarnings {
			logger.Warn().Int("skipped", skipped).Msg("skipped malformed catalog records")
		}
	}()

	for i, raw := range elements {
		record, err := decodeRecord(raw)
		if err != nil {
			skipped++
			if skipped <= maxSkipWarnings {
				logger.Warn().Err(err).Int("index", i).Msg("skipping malformed catalog record")
			}
			continue
		}
		if record.Matches(name) {
			return record, nil
		}
	}
	return nil, nil
}

// UpdateResult describes a refreshed catalog.
type UpdateResult struct {
	Path    string
	Records int
	Bytes   int64
	Signed  bool
}

// Update downloads the bulk catalog and replaces the cached copy. The new
// file is written beside the old one and renamed into place only after it
// decodes as a JSON array and, when a keyring is configured, its signature
// verifies. A single attempt is made.
func (c *Catalog) Update(ctx context.Context) (*UpdateResult, error) {
	c.logger.Info().Str("url", c.sourceURL).Msg("downloading formula catalog")

	data, err := c.get(ctx, c.sourceURL)
	if err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, installerr.New(installerr.KindNetwork, "decode formula", fmt.Errorf("catalog is not a JSON array: %w", err))
	}

	result := &UpdateResult{Path: c.path, Records: len(elements), Bytes: int64(len(data))}

	var sig []byte
	if c.keyring != "" {
		sig, err = c.get(ctx, c.sourceURL+".sig")
		if err != nil {
			return nil, err
		}
		if err := c.verify(data, sig); err != nil {
			return nil, err
		}
		result.Signed = true
	}

	if err := writeFileAtomic(c.path, data); err != nil {
		return nil, installerr.New(installerr.KindFilesystem, "write catalog", err)
	}
	if sig != nil {
		if err := writeFileAtomic(c.SignaturePath(), sig); err != nil {
			return nil, installerr.New(installerr.KindFilesystem, "write catalog", err)
		}
	}

	c.logger.Info().Int("records", result.Records).Str("path", c.path).Msg("formula catalog updated")
	return result, nil
}

func (c *Catalog) verify(data, sig []byte) error {
	keyring, err := LoadKeyring(c.keyring)
	if err != nil {
		return installerr.New(installerr.KindIntegrity, "verify catalog", err)
	}
	if err := VerifySignature(keyring, data, sig); err != nil {
		return installerr.New(installerr.KindIntegrity, "verify catalog", err)
	}
	return nil
}

// get performs a single GET and returns the body.
func (c *Catalog) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "download catalog", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "download catalog", fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, installerr.Errorf(installerr.KindNetwork, "download catalog", "unexpected status code: %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "download catalog", fmt.Errorf("read response body: %w", err))
	}
	return body, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}
