package formula

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

const (
	// DefaultAPI is the Homebrew formula JSON API.
	DefaultAPI = "https://formulae.brew.sh/api/formula"
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "still/0.1"
)

// ClientConfig configures a live formula API client.
type ClientConfig struct {
	BaseURL    string // e.g. DefaultAPI; "<BaseURL>/<name>.json" is fetched
	UserAgent  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client looks up formulas one at a time over HTTP.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    zerolog.Logger
}

// NewClient creates a live formula client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultAPI
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// Lookup fetches the formula named name. A 404 is a NotFound error, any
// other failure a Network error.
func (c *Client) Lookup(ctx context.Context, name string) (*Record, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(name) + ".json"
	c.logger.Debug().Str("url", endpoint).Msg("fetching formula")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "fetch formula", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "fetch formula", fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, installerr.Errorf(installerr.KindNotFound, "fetch formula", "no formula named %q", name)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, installerr.Errorf(installerr.KindNetwork, "fetch formula", "unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "fetch formula", fmt.Errorf("read response body: %w", err))
	}

	record, err := decodeRecord(body)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, "decode formula", err)
	}
	return record, nil
}
