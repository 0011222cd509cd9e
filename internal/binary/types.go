package binary

import (
	"time"
)

const (
	// DefaultTokenURL is the registry token endpoint.
	DefaultTokenURL = "https://ghcr.io/token"
	// DefaultTokenService is the service parameter sent to the token endpoint.
	DefaultTokenService = "ghcr.io"
	// DefaultNamespace is the repository namespace bottles live under.
	DefaultNamespace = "homebrew/core"
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "still/0.1"
)

// Blob is a downloaded bottle payload.
type Blob struct {
	Data   []byte
	Digest string // expected hex sha-256 taken from the blob URL
}

// InstallResult describes a completed install.
type InstallResult struct {
	ToolName    string
	Version     string
	PlatformKey string // bottle key that was installed
	InstallPath string // <tools_root>/<name>/<version>
	BinaryPath  string // empty when no executable was found
	LinkPath    string // symlink in the bin root, empty when not activated
	Warnings    []string
	Duration    time.Duration
}
