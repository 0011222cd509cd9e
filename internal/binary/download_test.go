package binary

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
	"github.com/ZebulonRouseFrantzich/still/internal/testutil"
)

const emptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func newTestFetcher(reg *testutil.Registry) *Fetcher {
	return NewFetcher(FetcherConfig{
		TokenURL: reg.TokenURL(),
		Logger:   zerolog.Nop(),
	})
}

func TestParseDigest(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "ghcr blob url",
			url:  "https://ghcr.io/v2/homebrew/core/ripgrep/blobs/sha256:" + emptyDigest,
			want: emptyDigest,
		},
		{
			name: "upper case hex",
			url:  "https://ghcr.io/v2/homebrew/core/jq/blobs/sha256:" + strings.ToUpper(emptyDigest),
			want: emptyDigest,
		},
		{
			name: "query string is ignored",
			url:  "https://example.com/blobs/sha256:" + emptyDigest + "?x=1",
			want: emptyDigest,
		},
		{
			name:    "no digest",
			url:     "https://example.com/ripgrep.tar.gz",
			wantErr: true,
		},
		{
			name:    "truncated hex",
			url:     "https://ghcr.io/v2/homebrew/core/jq/blobs/sha256:abc123",
			wantErr: true,
		},
		{
			name:    "not hex",
			url:     "https://ghcr.io/v2/homebrew/core/jq/blobs/sha256:" + strings.Repeat("z", 64),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDigest(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDigest(%q) = %q, want error", tt.url, got)
				}
				if !errors.Is(err, installerr.ErrIntegrity) {
					t.Errorf("error kind = %v, want IntegrityError", installerr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDigest(%q) error = %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ParseDigest(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestFetcher_Token(t *testing.T) {
	reg := testutil.NewRegistry(t)
	fetcher := newTestFetcher(reg)

	token, err := fetcher.Token(context.Background(), "ripgrep")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != reg.Token {
		t.Errorf("Token() = %q, want %q", token, reg.Token)
	}

	scopes := reg.Scopes()
	if len(scopes) != 1 || scopes[0] != "repository:homebrew/core/ripgrep:pull" {
		t.Errorf("token scopes = %v, want [repository:homebrew/core/ripgrep:pull]", scopes)
	}
}

func TestFetcher_TokenFailure(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.Fail(testutil.EndpointToken, http.StatusServiceUnavailable)

	_, err := newTestFetcher(reg).Token(context.Background(), "ripgrep")
	if !errors.Is(err, installerr.ErrNetwork) {
		t.Fatalf("Token() error = %v, want NetworkError", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestFetcher_BlobRequiresToken(t *testing.T) {
	reg := testutil.NewRegistry(t)
	url, _ := reg.AddBlob("jq", []byte("payload"))
	fetcher := newTestFetcher(reg)

	if _, err := fetcher.Blob(context.Background(), url, "wrong-token"); !errors.Is(err, installerr.ErrNetwork) {
		t.Fatalf("Blob() with a bad token error = %v, want NetworkError", err)
	}

	data, err := fetcher.Blob(context.Background(), url, reg.Token)
	if err != nil {
		t.Fatalf("Blob() error = %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Blob() = %q, want %q", data, "payload")
	}
}

func TestFetcher_Fetch(t *testing.T) {
	reg := testutil.NewRegistry(t)
	payload := testutil.TarGz(t, testutil.File("jq/1.7.1/bin/jq", "#!/bin/sh\n", 0o755))
	url, digest := reg.AddBlob("jq", payload)

	blob, err := newTestFetcher(reg).Fetch(context.Background(), formula.BottleFile{URL: url, Digest: digest}, "jq")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if blob.Digest != digest {
		t.Errorf("blob digest = %q, want %q", blob.Digest, digest)
	}
	if len(blob.Data) != len(payload) {
		t.Errorf("blob size = %d, want %d", len(blob.Data), len(payload))
	}
	if got := reg.Requests(testutil.EndpointToken); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}

func TestFetcher_FetchDisagreeingDigest(t *testing.T) {
	reg := testutil.NewRegistry(t)
	url, _ := reg.AddBlob("jq", []byte("payload"))

	bottle := formula.BottleFile{URL: url, Digest: emptyDigest}
	_, err := newTestFetcher(reg).Fetch(context.Background(), bottle, "jq")
	if !errors.Is(err, installerr.ErrIntegrity) {
		t.Fatalf("Fetch() error = %v, want IntegrityError", err)
	}
	if got := reg.Requests(testutil.EndpointToken) + reg.Requests(testutil.EndpointBlob); got != 0 {
		t.Errorf("network requests = %d, want none before the digest check", got)
	}
}

func TestFetcher_FetchMissingBlob(t *testing.T) {
	reg := testutil.NewRegistry(t)
	url := reg.Server.URL + "/v2/homebrew/core/jq/blobs/sha256:" + emptyDigest

	_, err := newTestFetcher(reg).Fetch(context.Background(), formula.BottleFile{URL: url}, "jq")
	if !errors.Is(err, installerr.ErrNetwork) {
		t.Fatalf("Fetch() error = %v, want NetworkError", err)
	}
}

func TestFetcher_ContextCancellation(t *testing.T) {
	reg := testutil.NewRegistry(t)
	url, _ := reg.AddBlob("jq", []byte("payload"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(reg).Fetch(ctx, formula.BottleFile{URL: url}, "jq")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(FetcherConfig{Namespace: "/homebrew/core/"})

	if f.tokenURL != DefaultTokenURL {
		t.Errorf("tokenURL = %q, want %q", f.tokenURL, DefaultTokenURL)
	}
	if f.service != DefaultTokenService {
		t.Errorf("service = %q, want %q", f.service, DefaultTokenService)
	}
	if f.namespace != "homebrew/core" {
		t.Errorf("namespace = %q, want trimmed homebrew/core", f.namespace)
	}
	if f.userAgent != DefaultUserAgent {
		t.Errorf("userAgent = %q, want %q", f.userAgent, DefaultUserAgent)
	}
	if f.client == nil {
		t.Error("client should default to a redirect-limited http.Client")
	}
}
