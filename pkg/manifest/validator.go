package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/wenpm/bucketctl/internal/assets"
	"github.com/wenpm/bucketctl/pkg/platform"
)

// ViolationKind classifies a validation failure.
type ViolationKind string

const (
	KindInvalidJSON     ViolationKind = "invalid_json"
	KindNotAnArray      ViolationKind = "not_an_array"
	KindMissingField    ViolationKind = "missing_field"
	KindWrongType       ViolationKind = "wrong_type"
	KindInvalidValue    ViolationKind = "invalid_value"
	KindEmptyPlatforms  ViolationKind = "empty_platforms"
	KindUnknownPlatform ViolationKind = "unknown_platform"
	KindDuplicateName   ViolationKind = "duplicate_name"
	KindDuplicateRepo   ViolationKind = "duplicate_repo"
)

// Violation is one validation failure. Index is the offending record's
// position in the manifest array, or -1 when the failure is not tied to a
// single record.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Index   int           `json:"index"`
	Field   string        `json:"field,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	if v.Index >= 0 {
		return fmt.Sprintf("[%s] record %d: %s", v.Kind, v.Index, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Kind, v.Message)
}

// ValidationResult holds the complete outcome of one validation pass.
// Valid is true iff the violation list is empty; warnings never fail a
// manifest.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// Validator checks manifest bytes against the structural schema and the
// cross-record invariants. Stateless between manifests; validating the same
// bytes twice yields the same verdict and the same violation list.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded manifest schema.
func NewValidator() (*Validator, error) {
	sch, err := compileSchemaBytes(assets.ManifestSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile manifest schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// compileSchemaBytes accepts YAML or JSON schema bytes; YAML is converted to
// canonical JSON for the loader.
func compileSchemaBytes(schemaBytes []byte) (*gojsonschema.Schema, error) {
	var tmp interface{}
	if err := yaml.Unmarshal(schemaBytes, &tmp); err == nil {
		jb, jerr := json.Marshal(tmp)
		if jerr != nil {
			return nil, fmt.Errorf("failed to encode schema to JSON: %w", jerr)
		}
		schemaBytes = jb
	}
	loader := gojsonschema.NewBytesLoader(schemaBytes)
	sch, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return sch, nil
}

// Validate runs every check and collects every violation found; it never
// stops at the first problem.
func (v *Validator) Validate(data []byte) *ValidationResult {
	res := &ValidationResult{}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		res.Violations = append(res.Violations, Violation{
			Kind:    KindInvalidJSON,
			Index:   -1,
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return res
	}

	records, ok := doc.([]interface{})
	if !ok {
		res.Violations = append(res.Violations, Violation{
			Kind:    KindNotAnArray,
			Index:   -1,
			Message: "manifest must be a top-level array of packages",
		})
		return res
	}

	v.schemaPass(data, res)
	v.semanticPass(records, res)

	if len(records) == 0 {
		res.Warnings = append(res.Warnings, "manifest is empty")
	}

	res.Valid = len(res.Violations) == 0
	return res
}

// schemaPass checks record shape against the embedded JSON Schema.
func (v *Validator) schemaPass(data []byte, res *ValidationResult) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		res.Violations = append(res.Violations, Violation{
			Kind:    KindInvalidJSON,
			Index:   -1,
			Message: fmt.Sprintf("schema validation failed: %v", err),
		})
		return
	}
	violations := make([]Violation, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, violationFromSchemaError(verr))
	}
	// The schema walker visits object keys in map order; sort so the same
	// bytes always produce the same violation list.
	sort.SliceStable(violations, func(a, b int) bool {
		if violations[a].Index != violations[b].Index {
			return violations[a].Index < violations[b].Index
		}
		if violations[a].Field != violations[b].Field {
			return violations[a].Field < violations[b].Field
		}
		return violations[a].Message < violations[b].Message
	})
	res.Violations = append(res.Violations, violations...)
}

// violationFromSchemaError maps a gojsonschema result error onto the
// manifest violation taxonomy.
func violationFromSchemaError(verr gojsonschema.ResultError) Violation {
	field := verr.Field()
	index := recordIndex(verr.Context().String())
	message := verr.Description()
	if field != "" && field != "(root)" {
		message = field + ": " + message
	}

	switch verr.Type() {
	case "required":
		name := field
		if prop, ok := verr.Details()["property"].(string); ok {
			name = prop
		}
		return Violation{Kind: KindMissingField, Index: index, Field: name, Message: message}
	case "invalid_type":
		if field == "" || field == "(root)" {
			return Violation{Kind: KindNotAnArray, Index: -1, Message: "manifest must be a top-level array of packages"}
		}
		return Violation{Kind: KindWrongType, Index: index, Field: lastSegment(field), Message: message}
	case "array_min_properties", "min_properties":
		return Violation{Kind: KindEmptyPlatforms, Index: index, Field: lastSegment(field), Message: message}
	default:
		return Violation{Kind: KindInvalidValue, Index: index, Field: lastSegment(field), Message: message}
	}
}

// recordIndex extracts the record position from a schema context path like
// "(root).3.platforms.linux-x86_64.size".
func recordIndex(path string) int {
	path = strings.TrimPrefix(path, "(root)")
	path = strings.TrimPrefix(path, ".")
	head := path
	if i := strings.IndexByte(path, '.'); i >= 0 {
		head = path[:i]
	}
	if idx, err := strconv.Atoi(head); err == nil {
		return idx
	}
	return -1
}

func lastSegment(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[i+1:]
	}
	return field
}

// semanticPass enforces the cross-record invariants the schema cannot
// express: uniqueness, platform vocabulary and advisory warnings.
func (v *Validator) semanticPass(records []interface{}, res *ValidationResult) {
	fold := cases.Fold()
	seenNames := make(map[string]int)
	seenRepos := make(map[string]int)

	for i, raw := range records {
		record, ok := raw.(map[string]interface{})
		if !ok {
			// Shape already reported by the schema pass.
			continue
		}

		if name, ok := record["name"].(string); ok && name != "" {
			key := fold.String(name)
			if _, dup := seenNames[key]; dup {
				res.Violations = append(res.Violations, Violation{
					Kind:    KindDuplicateName,
					Index:   i,
					Field:   "name",
					Message: fmt.Sprintf("duplicate package name %q (first seen at record %d)", name, seenNames[key]),
				})
			} else {
				seenNames[key] = i
			}
		}

		if repo, ok := record["repo"].(string); ok && repo != "" {
			if _, dup := seenRepos[repo]; dup {
				res.Violations = append(res.Violations, Violation{
					Kind:    KindDuplicateRepo,
					Index:   i,
					Field:   "repo",
					Message: fmt.Sprintf("duplicate repository %q (first seen at record %d)", repo, seenRepos[repo]),
				})
			} else {
				seenRepos[repo] = i
			}

			if !strings.HasPrefix(repo, "https://github.com/") {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("record %d: repo URL %q is not on github.com", i, repo))
			}
		}

		platforms, ok := record["platforms"].(map[string]interface{})
		if !ok {
			continue
		}
		ids := make([]string, 0, len(platforms))
		for id := range platforms {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			raw := platforms[id]
			if _, err := platform.Parse(id); err != nil {
				res.Violations = append(res.Violations, Violation{
					Kind:    KindUnknownPlatform,
					Index:   i,
					Field:   "platforms",
					Message: err.Error(),
				})
			}
			desc, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if url, ok := desc["url"].(string); ok && url != "" && !strings.HasPrefix(url, "https://") {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("record %d: %s download URL is not using HTTPS", i, id))
			}
		}
	}
}
