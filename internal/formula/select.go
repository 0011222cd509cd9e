package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
	"github.com/ZebulonRouseFrantzich/still/internal/platform"
)

// ErrNoBottle is returned when no bottle variant fits the platform. It is a
// NotFound kind.
var ErrNoBottle = &installerr.Error{Kind: installerr.KindNotFound, Err: errors.New("no bottle available")}

// Selector picks one bottle variant for a platform key.
//
// The chain is: exact key, then "all", then any key with the platform's
// architecture prefix. Priority lists codenames ("sequoia", "sonoma", ...)
// tried in order within the architecture step before falling back to the
// lexically first matching key.
type Selector struct {
	Priority []string
}

// Select returns the chosen key and bottle.
func (s Selector) Select(variants map[string]BottleFile, platformKey string) (string, BottleFile, error) {
	if b, ok := variants[platformKey]; ok {
		return platformKey, b, nil
	}
	if b, ok := variants[AllPlatforms]; ok {
		return AllPlatforms, b, nil
	}

	if arch := platform.ArchFromKey(platformKey); arch != "" {
		for _, codename := range s.Priority {
			key := arch + "_" + strings.ToLower(strings.TrimSpace(codename))
			if b, ok := variants[key]; ok {
				return key, b, nil
			}
		}

		var best string
		for key := range variants {
			if platform.ArchFromKey(key) == arch && (best == "" || key < best) {
				best = key
			}
		}
		if best != "" {
			return best, variants[best], nil
		}
	}

	keys := (&Record{Bottles: variants}).BottleKeys()
	return "", BottleFile{}, fmt.Errorf("%w for %s (available: %s)", ErrNoBottle, platformKey, describeKeys(keys))
}

// SelectBottle runs the chain without a codename priority table.
func SelectBottle(variants map[string]BottleFile, platformKey string) (BottleFile, error) {
	_, b, err := Selector{}.Select(variants, platformKey)
	return b, err
}

func describeKeys(keys []string) string {
	if len(keys) == 0 {
		return "none"
	}
	return strings.Join(keys, ", ")
}
