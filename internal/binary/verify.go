package binary

import (
	_ "crypto/sha256" // registers the hash go-digest resolves for SHA256
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/ZebulonRouseFrantzich/still/internal/formula"
	"github.com/ZebulonRouseFrantzich/still/internal/installerr"
)

// VerifyDigest checks that data hashes to the expected hex sha-256.
// Comparison is case-insensitive.
func VerifyDigest(data []byte, expected string) error {
	actual := calculateSHA256(data)

	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return installerr.Errorf(installerr.KindIntegrity, "verify digest",
			"checksum mismatch: actual %s, expected %s", actual, expected)
	}
	return nil
}

// ExpectedDigest returns the digest a bottle must hash to. It comes from
// the blob URL; a sha256 declared by the formula must agree with it.
func ExpectedDigest(bottle formula.BottleFile) (string, error) {
	fromURL, err := ParseDigest(bottle.URL)
	if err != nil {
		return "", err
	}
	if bottle.Digest != "" && !strings.EqualFold(bottle.Digest, fromURL) {
		return "", installerr.Errorf(installerr.KindIntegrity, "verify digest",
			"formula sha256 %s disagrees with blob digest %s", bottle.Digest, fromURL)
	}
	return fromURL, nil
}

// calculateSHA256 returns the lower-case hex sha-256 of data.
func calculateSHA256(data []byte) string {
	return digest.SHA256.FromBytes(data).Encoded()
}
