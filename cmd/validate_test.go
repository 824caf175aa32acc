package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenpm/bucketctl/pkg/manifest"
)

const validManifestJSON = `[
  {
    "name": "ripgrep",
    "description": "Recursively search directories for a regex pattern",
    "repo": "https://github.com/BurntSushi/ripgrep",
    "version": "14.1.1",
    "platforms": {
      "linux-x86_64": {
        "url": "https://github.com/BurntSushi/ripgrep/releases/download/14.1.1/ripgrep-14.1.1-x86_64-unknown-linux-musl.tar.gz",
        "size": 2566310
      }
    }
  }
]
`

func writeTempManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunValidationValid(t *testing.T) {
	path := writeTempManifest(t, validManifestJSON)
	buf := &bytes.Buffer{}

	result, err := runValidation(path, "text", buf)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Contains(t, buf.String(), "Manifest is valid")
}

func TestRunValidationInvalidShape(t *testing.T) {
	path := writeTempManifest(t, `{"invalid": "format"}`)
	buf := &bytes.Buffer{}

	result, err := runValidation(path, "text", buf)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, manifest.KindNotAnArray, result.Violations[0].Kind)
	assert.Contains(t, buf.String(), "Manifest is invalid")
}

func TestRunValidationCollectsAllViolations(t *testing.T) {
	path := writeTempManifest(t, `[
  {"description": "no name or repo", "platforms": {}},
  {"name": "ok", "repo": "https://github.com/a/ok", "platforms": {"linux-x86_64": {"url": "https://example.com/ok.tar.gz", "size": 10}}},
  {"name": "ok", "repo": "https://github.com/b/ok2", "platforms": {"linux-x86_64": {"url": "https://example.com/ok2.tar.gz", "size": 10}}}
]`)
	buf := &bytes.Buffer{}

	result, err := runValidation(path, "text", buf)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	// Missing name, missing repo and empty platforms on record 0 plus the
	// duplicate name on record 2 must all surface in one run.
	assert.GreaterOrEqual(t, len(result.Violations), 4)
	assert.Contains(t, buf.String(), "violation(s)")
}

func TestRunValidationJSONFormat(t *testing.T) {
	path := writeTempManifest(t, validManifestJSON)
	buf := &bytes.Buffer{}

	result, err := runValidation(path, "json", buf)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	var decoded manifest.ValidationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.True(t, decoded.Valid)
	assert.Empty(t, decoded.Violations)
}

func TestRunValidationUnknownFormat(t *testing.T) {
	path := writeTempManifest(t, validManifestJSON)

	_, err := runValidation(path, "xml", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRunValidationMissingFile(t *testing.T) {
	_, err := runValidation(filepath.Join(t.TempDir(), "nope.json"), "text", &bytes.Buffer{})
	require.Error(t, err)
}

func TestValidateCommandValidManifest(t *testing.T) {
	path := writeTempManifest(t, validManifestJSON)
	root, buf := newTestRoot()
	root.SetArgs([]string{"validate", path})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Manifest is valid")
}
