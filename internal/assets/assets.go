// Package assets embeds the schemas and templates bucketctl ships with.
package assets

import (
	_ "embed"
)

// ManifestSchema is the JSON Schema the validator checks manifests against.
//
//go:embed embedded_schemas/manifest-v1.json
var ManifestSchema []byte

// SummaryTemplate renders the human-readable end-of-run report.
//
//go:embed embedded_templates/summary.tmpl
var SummaryTemplate string
