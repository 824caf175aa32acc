// Package manifest assembles, serializes and validates the bucket manifest
// consumed by the WenPM package-manager client.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Descriptor is the resolved download information for one platform.
type Descriptor struct {
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
}

// Record is one package's entry within the manifest. Immutable after
// creation; replaced wholesale on the next generation run.
type Record struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Repo        string                `json:"repo"`
	Homepage    string                `json:"homepage,omitempty"`
	License     string                `json:"license,omitempty"`
	Version     string                `json:"version,omitempty"`
	Platforms   map[string]Descriptor `json:"platforms"`
}

// Manifest is the ordered collection of records, serialized as a top-level
// JSON array. Any other top-level shape is a structural error.
type Manifest []Record

// Encode renders the manifest as indented JSON with a trailing newline.
func (m Manifest) Encode() ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Write serializes the manifest to a file on the given filesystem.
func Write(fs billy.Filesystem, path string, m Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close manifest file: %w", err)
	}
	return nil
}

// WriteFile serializes the manifest to a path on the local filesystem.
func WriteFile(path string, m Manifest) error {
	dir := filepath.Dir(path)
	return Write(osfs.New(dir), filepath.Base(path), m)
}

// ReadFile loads raw manifest bytes from disk. Parsing is left to the
// Validator so structural problems surface as violations, not read errors.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided CLI path
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return data, nil
}
