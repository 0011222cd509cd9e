// Package formula resolves tool names to formula metadata and picks the
// bottle that fits a platform.
//
// Metadata comes from a Source: the live JSON API (Client) or a cached bulk
// catalog file (Catalog). Both decode the Homebrew formula wire format into
// a Record. The Resolver matches a Record against the requested version and
// the Selector walks the fallback chain over its bottle variants.
package formula

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AllPlatforms is the bottle key used by platform-independent bottles.
const AllPlatforms = "all"

// BottleFile is one precompiled distribution of a formula.
type BottleFile struct {
	URL    string // blob URL; carries the digest as "sha256:<hex>"
	Digest string // hex sha-256 declared by the formula, may be empty
	Prefix string // storage prefix (cellar) the bottle was built for
}

// Record is the subset of formula metadata the installer needs.
type Record struct {
	Name            string
	FullName        string
	Aliases         []string
	HistoricalNames []string
	StableVersion   string
	Revision        int
	Description     string
	Bottles         map[string]BottleFile
}

// Matches reports whether name refers to this formula by its canonical
// name, an alias or a former name.
func (r *Record) Matches(name string) bool {
	if r.Name == name {
		return true
	}
	return slices.Contains(r.Aliases, name) || slices.Contains(r.HistoricalNames, name)
}

// BottleKeys returns the record's bottle keys in lexical order.
func (r *Record) BottleKeys() []string {
	keys := make([]string, 0, len(r.Bottles))
	for k := range r.Bottles {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Source looks up a single formula by name.
type Source interface {
	Lookup(ctx context.Context, name string) (*Record, error)
}

// wireFormula mirrors the fields of a formula object in the JSON API.
type wireFormula struct {
	Name     string   `json:"name"`
	FullName string   `json:"full_name"`
	Aliases  []string `json:"aliases"`
	Oldnames []string `json:"oldnames"`
	Oldname  string   `json:"oldname"`
	Desc     string   `json:"desc"`
	Revision int      `json:"revision"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
	Bottle struct {
		Stable struct {
			Files map[string]wireBottleFile `json:"files"`
		} `json:"stable"`
	} `json:"bottle"`
}

type wireBottleFile struct {
	Cellar string `json:"cellar"`
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// decodeRecord decodes one formula object. Objects without a name or a
// stable version are rejected.
func decodeRecord(data []byte) (*Record, error) {
	var w wireFormula
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(w.Name)
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if strings.TrimSpace(w.Versions.Stable) == "" {
		return nil, fmt.Errorf("formula %s: missing versions.stable", name)
	}

	historical := slices.Clone(w.Oldnames)
	if w.Oldname != "" && !slices.Contains(historical, w.Oldname) {
		historical = append(historical, w.Oldname)
	}

	bottles := make(map[string]BottleFile, len(w.Bottle.Stable.Files))
	for key, f := range w.Bottle.Stable.Files {
		if f.URL == "" {
			continue
		}
		bottles[key] = BottleFile{
			URL:    f.URL,
			Digest: strings.ToLower(f.SHA256),
			Prefix: f.Cellar,
		}
	}

	return &Record{
		Name:            name,
		FullName:        w.FullName,
		Aliases:         w.Aliases,
		HistoricalNames: historical,
		StableVersion:   w.Versions.Stable,
		Revision:        w.Revision,
		Description:     w.Desc,
		Bottles:         bottles,
	}, nil
}
