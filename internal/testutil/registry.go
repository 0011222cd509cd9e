package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Namespace is the blob namespace served by the fake registry.
const Namespace = "homebrew/core"

// Bottle is one bottle variant in a fake formula.
type Bottle struct {
	URL    string
	SHA256 string
	Cellar string
}

// Formula is a fake formula object, encoded in the JSON API wire format.
type Formula struct {
	Name     string
	Version  string
	Aliases  []string
	Oldnames []string
	Desc     string
	Bottles  map[string]Bottle
}

// MarshalJSON encodes f like the formula JSON API does.
func (f Formula) MarshalJSON() ([]byte, error) {
	files := make(map[string]any, len(f.Bottles))
	for key, b := range f.Bottles {
		cellar := b.Cellar
		if cellar == "" {
			cellar = ":any_skip_relocation"
		}
		files[key] = map[string]string{"cellar": cellar, "url": b.URL, "sha256": b.SHA256}
	}
	aliases := f.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	oldnames := f.Oldnames
	if oldnames == nil {
		oldnames = []string{}
	}
	return json.Marshal(map[string]any{
		"name":      f.Name,
		"full_name": f.Name,
		"aliases":   aliases,
		"oldnames":  oldnames,
		"desc":      f.Desc,
		"revision":  0,
		"versions":  map[string]any{"stable": f.Version, "head": nil, "bottle": true},
		"bottle":    map[string]any{"stable": map[string]any{"rebuild": 0, "files": files}},
	})
}

// Registry is an httptest server that speaks the formula API, the bulk
// catalog endpoint, the token endpoint and the blob endpoint. It counts
// requests per endpoint.
type Registry struct {
	Server *httptest.Server
	Token  string

	mu        sync.Mutex
	formulas  map[string][]byte
	blobs     map[string][]byte
	catalog   []byte
	signature []byte
	failures  map[string]int
	hits      map[string]int
	scopes    []string
}

// Endpoint names used by Requests and Fail.
const (
	EndpointFormula = "formula"
	EndpointCatalog = "catalog"
	EndpointToken   = "token"
	EndpointBlob    = "blob"
)

// NewRegistry starts a fake registry that is closed when the test ends.
func NewRegistry(t testing.TB) *Registry {
	t.Helper()

	r := &Registry{
		Token:    "test-token",
		formulas: make(map[string][]byte),
		blobs:    make(map[string][]byte),
		failures: make(map[string]int),
		hits:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/formula.json", r.serveCatalog)
	mux.HandleFunc("GET /api/formula.json.sig", r.serveSignature)
	mux.HandleFunc("GET /api/formula/{file}", r.serveFormula)
	mux.HandleFunc("GET /token", r.serveToken)
	mux.HandleFunc("GET /v2/{path...}", r.serveBlob)

	r.Server = httptest.NewServer(mux)
	t.Cleanup(r.Server.Close)
	return r
}

// FormulaAPI is the base URL for formula lookups.
func (r *Registry) FormulaAPI() string { return r.Server.URL + "/api/formula" }

// TokenURL is the token endpoint.
func (r *Registry) TokenURL() string { return r.Server.URL + "/token" }

// AddFormula registers a formula under its name.
func (r *Registry) AddFormula(t testing.TB, f Formula) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal formula %s: %v", f.Name, err)
	}
	r.AddRawFormula(f.Name, data)
}

// AddRawFormula registers an arbitrary response body for name.
func (r *Registry) AddRawFormula(name string, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formulas[name] = body
}

// AddBlob stores data for tool and returns its blob URL and hex digest.
func (r *Registry) AddBlob(tool string, data []byte) (url, digest string) {
	sum := sha256.Sum256(data)
	digest = hex.EncodeToString(sum[:])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[digest] = data
	return r.Server.URL + "/v2/" + Namespace + "/" + tool + "/blobs/sha256:" + digest, digest
}

// SetCatalog sets the bulk catalog body and its optional signature.
func (r *Registry) SetCatalog(body, signature []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = body
	r.signature = signature
}

// Fail makes every request to endpoint answer with status.
func (r *Registry) Fail(endpoint string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[endpoint] = status
}

// Requests returns how many requests endpoint has received.
func (r *Registry) Requests(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[endpoint]
}

// Scopes returns the scope parameters seen by the token endpoint.
func (r *Registry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scopes...)
}

// hit records a request and reports a configured failure status, if any.
func (r *Registry) hit(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[endpoint]++
	return r.failures[endpoint]
}

func (r *Registry) serveCatalog(w http.ResponseWriter, req *http.Request) {
	if status := r.hit(EndpointCatalog); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	r.mu.Lock()
	body := r.catalog
	r.mu.Unlock()
	if body == nil {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (r *Registry) serveSignature(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	sig := r.signature
	r.mu.Unlock()
	if sig == nil {
		http.NotFound(w, req)
		return
	}
	_, _ = w.Write(sig)
}

func (r *Registry) serveFormula(w http.ResponseWriter, req *http.Request) {
	if status := r.hit(EndpointFormula); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	name, ok := strings.CutSuffix(req.PathValue("file"), ".json")
	if !ok {
		http.NotFound(w, req)
		return
	}
	r.mu.Lock()
	body, found := r.formulas[name]
	r.mu.Unlock()
	if !found {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (r *Registry) serveToken(w http.ResponseWriter, req *http.Request) {
	if status := r.hit(EndpointToken); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	r.mu.Lock()
	r.scopes = append(r.scopes, req.URL.Query().Get("scope"))
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": r.Token})
}

func (r *Registry) serveBlob(w http.ResponseWriter, req *http.Request) {
	if status := r.hit(EndpointBlob); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if req.Header.Get("Authorization") != "Bearer "+r.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	_, digest, ok := strings.Cut(req.PathValue("path"), "/blobs/sha256:")
	if !ok {
		http.NotFound(w, req)
		return
	}
	r.mu.Lock()
	data, found := r.blobs[strings.ToLower(digest)]
	r.mu.Unlock()
	if !found {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}
