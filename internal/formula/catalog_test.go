package formula

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
	"github.com/ZebulonRouseFrantzich/still/internal/testutil"
)

func catalogJSON(t *testing.T, elements ...any) []byte {
	t.Helper()
	data, err := json.Marshal(elements)
	require.NoError(t, err)
	return data
}

func writeCatalog(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formula.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCatalog_Lookup(t *testing.T) {
	data := catalogJSON(t,
		testutil.Formula{Name: "jq", Version: "1.7.1"},
		map[string]any{"name": "no-versions"},
		"not an object",
		42,
		ripgrepFormula("https://example.invalid/sha256:abc"),
		testutil.Formula{Name: "rg-fork", Version: "0.1.0", Aliases: []string{"rg"}},
	)

	var logs bytes.Buffer
	catalog := NewCatalog(CatalogConfig{Path: writeCatalog(t, data), Logger: zerolog.New(&logs)})
	ctx := context.Background()

	tests := []struct {
		name     string
		lookup   string
		wantName string
	}{
		{"canonical name", "jq", "jq"},
		{"alias resolves to first match", "rg", "ripgrep"},
		{"historical name", "ripgrep-legacy", "ripgrep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := catalog.Lookup(ctx, tt.lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, record.Name)
		})
	}

	_, err := catalog.Lookup(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, installerr.ErrNotFound)

	assert.Contains(t, logs.String(), "skipping malformed catalog record")
}

func TestCatalog_SkipWarningsAreCapped(t *testing.T) {
	var elements []any
	for range 6 {
		elements = append(elements, "junk")
	}

	var logs bytes.Buffer
	_, err := scanCatalog(catalogJSON(t, elements...), "jq", zerolog.New(&logs))
	require.NoError(t, err)

	out := logs.String()
	assert.Equal(t, maxSkipWarnings, strings.Count(out, "skipping malformed catalog record"))
	assert.Contains(t, out, `"skipped":6`)
}

func TestCatalog_BadTopLevel(t *testing.T) {
	catalog := NewCatalog(CatalogConfig{Path: writeCatalog(t, []byte(`{"name":"jq"}`))})

	_, err := catalog.Lookup(context.Background(), "jq")
	require.Error(t, err)
	assert.ErrorIs(t, err, installerr.ErrNetwork)
	assert.Contains(t, err.Error(), "decode formula")
}

func TestCatalog_Missing(t *testing.T) {
	catalog := NewCatalog(CatalogConfig{Path: filepath.Join(t.TempDir(), "formula.json")})

	_, err := catalog.Lookup(context.Background(), "jq")
	require.Error(t, err)
	assert.ErrorIs(t, err, installerr.ErrFilesystem)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "catalog update")
}

func TestCatalog_LookupCanceled(t *testing.T) {
	catalog := NewCatalog(CatalogConfig{Path: writeCatalog(t, catalogJSON(t, map[string]any{"name": "jq"}))})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := catalog.Lookup(ctx, "jq")
	require.Error(t, err)
	assert.Equal(t, installerr.KindFilesystem, installerr.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalog_Update(t *testing.T) {
	reg := testutil.NewRegistry(t)
	body := catalogJSON(t, testutil.Formula{Name: "jq", Version: "1.7.1"}, testutil.Formula{Name: "fd", Version: "10.2.0"})
	reg.SetCatalog(body, nil)

	path := filepath.Join(t.TempDir(), "cache", "formula.json")
	catalog := NewCatalog(CatalogConfig{Path: path, SourceURL: reg.FormulaAPI() + ".json"})

	result, err := catalog.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Records)
	assert.False(t, result.Signed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	record, err := catalog.Lookup(context.Background(), "fd")
	require.NoError(t, err)
	assert.Equal(t, "10.2.0", record.StableVersion)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCatalog_UpdateKeepsOldCopyOnFailure(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetCatalog([]byte(`{"oops":true}`), nil)

	old := catalogJSON(t, testutil.Formula{Name: "jq", Version: "1.7.1"})
	path := writeCatalog(t, old)
	catalog := NewCatalog(CatalogConfig{Path: path, SourceURL: reg.FormulaAPI() + ".json"})

	_, err := catalog.Update(context.Background())
	require.Error(t, err)

	reg.Fail(testutil.EndpointCatalog, http.StatusBadGateway)
	_, err = catalog.Update(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, installerr.ErrNetwork)
	assert.Equal(t, 2, reg.Requests(testutil.EndpointCatalog), "single attempt per update")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, old, got)
}

// newSigningKey returns a fresh signing entity and the path of its exported
// armored public keyring.
func newSigningKey(t *testing.T) (*openpgp.Entity, string) {
	t.Helper()

	entity, err := openpgp.NewEntity("still test", "", "test@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	require.NoError(t, err)

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "keyring.asc")
	require.NoError(t, os.WriteFile(path, pub.Bytes(), 0o644))
	return entity, path
}

func sign(t *testing.T, entity *openpgp.Entity, data []byte) []byte {
	t.Helper()
	var sig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(data), nil))
	return sig.Bytes()
}

func TestCatalog_Signature(t *testing.T) {
	entity, keyring := newSigningKey(t)
	body := catalogJSON(t, testutil.Formula{Name: "jq", Version: "1.7.1"})

	reg := testutil.NewRegistry(t)
	reg.SetCatalog(body, sign(t, entity, body))

	path := filepath.Join(t.TempDir(), "formula.json")
	catalog := NewCatalog(CatalogConfig{Path: path, Keyring: keyring, SourceURL: reg.FormulaAPI() + ".json"})

	result, err := catalog.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Signed)
	assert.FileExists(t, catalog.SignaturePath())

	_, err = catalog.Lookup(context.Background(), "jq")
	require.NoError(t, err)

	// Tamper with the cached catalog.
	tampered := catalogJSON(t, testutil.Formula{Name: "jq", Version: "6.6.6"})
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	_, err = catalog.Lookup(context.Background(), "jq")
	require.Error(t, err)
	assert.ErrorIs(t, err, installerr.ErrIntegrity)
}

func TestCatalog_UpdateRejectsBadSignature(t *testing.T) {
	entity, keyring := newSigningKey(t)
	body := catalogJSON(t, testutil.Formula{Name: "jq", Version: "1.7.1"})

	reg := testutil.NewRegistry(t)
	reg.SetCatalog(body, sign(t, entity, []byte("something else")))

	path := filepath.Join(t.TempDir(), "formula.json")
	catalog := NewCatalog(CatalogConfig{Path: path, Keyring: keyring, SourceURL: reg.FormulaAPI() + ".json"})

	_, err := catalog.Update(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, installerr.ErrIntegrity)
	assert.NoFileExists(t, path)
}

func TestLoadKeyring_Errors(t *testing.T) {
	_, err := LoadKeyring(filepath.Join(t.TempDir(), "missing.asc"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.asc")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0o644))
	_, err = LoadKeyring(garbage)
	assert.Error(t, err)
}
