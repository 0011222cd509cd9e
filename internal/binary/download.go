package binary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

// FetcherConfig configures a Fetcher. Empty fields take the Default*
// values.
type FetcherConfig struct {
	TokenURL   string
	Service    string
	Namespace  string
	UserAgent  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Fetcher downloads bottle blobs using an anonymous pull token.
type Fetcher struct {
	tokenURL  string
	service   string
	namespace string
	userAgent string
	client    *http.Client
	logger    zerolog.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		tokenURL:  cfg.TokenURL,
		service:   cfg.Service,
		namespace: strings.Trim(cfg.Namespace, "/"),
		userAgent: cfg.UserAgent,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger,
	}
	if f.tokenURL == "" {
		f.tokenURL = DefaultTokenURL
	}
	if f.service == "" {
		f.service = DefaultTokenService
	}
	if f.namespace == "" {
		f.namespace = DefaultNamespace
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.client == nil {
		f.client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	return f
}

// ParseDigest extracts the hex sha-256 embedded in a blob URL
// (".../blobs/sha256:<hex>"). The result is lower-case.
func ParseDigest(blobURL string) (string, error) {
	idx := strings.LastIndex(blobURL, "sha256:")
	if idx < 0 {
		return "", installerr.Errorf(installerr.KindIntegrity, "parse digest", "no sha256 digest in %s", blobURL)
	}

	encoded := blobURL[idx+len("sha256:"):]
	if end := strings.IndexAny(encoded, "?#/"); end >= 0 {
		encoded = encoded[:end]
	}

	d, err := digest.Parse(digest.SHA256.String() + ":" + strings.ToLower(encoded))
	if err != nil {
		return "", installerr.Errorf(installerr.KindIntegrity, "parse digest", "invalid digest in %s: %w", blobURL, err)
	}
	return d.Encoded(), nil
}

// Token requests an anonymous pull token scoped to tool.
func (f *Fetcher) Token(ctx context.Context, tool string) (string, error) {
	q := url.Values{}
	q.Set("service", f.service)
	q.Set("scope", fmt.Sprintf("repository:%s/%s:pull", f.namespace, tool))

	endpoint := f.tokenURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}

	body, err := f.get(ctx, "fetch token", endpoint, "")
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", installerr.New(installerr.KindNetwork, "fetch token", fmt.Errorf("decode token response: %w", err))
	}
	if resp.Token == "" {
		return "", installerr.Errorf(installerr.KindNetwork, "fetch token", "token response has no token")
	}
	return resp.Token, nil
}

// Blob downloads the full payload at blobURL with a bearer token.
func (f *Fetcher) Blob(ctx context.Context, blobURL, token string) ([]byte, error) {
	return f.get(ctx, "fetch blob", blobURL, token)
}

// Fetch resolves the bottle's expected digest, obtains a token for tool and
// downloads the blob. A single attempt is made.
func (f *Fetcher) Fetch(ctx context.Context, bottle formula.BottleFile, tool string) (*Blob, error) {
	expected, err := ExpectedDigest(bottle)
	if err != nil {
		return nil, err
	}

	token, err := f.Token(ctx, tool)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().Str("url", bottle.URL).Msg("downloading bottle")
	data, err := f.Blob(ctx, bottle.URL, token)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Int("bytes", len(data)).Msg("bottle downloaded")

	return &Blob{Data: data, Digest: expected}, nil
}

// get performs a single GET and returns the body. Transport failures and
// non-2xx responses are Network errors.
func (f *Fetcher) get(ctx context.Context, op, endpoint, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, op, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, op, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, installerr.Errorf(installerr.KindNetwork, op, "unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, installerr.New(installerr.KindNetwork, op, fmt.Errorf("read response body: %w", err))
	}
	return body, nil
}
