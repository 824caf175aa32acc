package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Policy is the optional bucket.toml override file maintainers keep next to
// their source list. It tunes classification without touching code.
//
//	default_arch = "x86_64"
//	exclude = ["*-musl.tar.gz"]
//
//	[rename]
//	"BurntSushi/ripgrep" = "rg"
type Policy struct {
	// DefaultArch overrides the architecture assumed for assets that name
	// an OS without naming an architecture.
	DefaultArch string `toml:"default_arch"`

	// Exclude holds glob patterns for asset names to skip during
	// classification.
	Exclude []string `toml:"exclude"`

	// Rename maps "owner/repo" to the package name to publish instead of
	// the repository name.
	Rename map[string]string `toml:"rename"`
}

// LoadPolicy reads a bucket.toml policy file. A missing path yields an
// empty policy rather than an error so the file stays optional.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided CLI path
	if err != nil {
		if os.IsNotExist(err) {
			return &Policy{}, nil
		}
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var p Policy
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return &p, nil
}
