package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wenpm/bucketctl/pkg/exitcode"
	"github.com/wenpm/bucketctl/pkg/logger"
	"github.com/wenpm/bucketctl/pkg/manifest"
)

var validateFormat string

var validateCmd = &cobra.Command{
	Use:   "validate [manifest-file]",
	Short: "Validate a bucket manifest against the manifest contract",
	Long: `Validate checks a manifest file against the schema and semantic rules of
the bucket manifest contract. All violations are collected and reported in a
single run; the command exits non-zero when any violation is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	manifestPath := "manifest.json"
	if len(args) > 0 {
		manifestPath = args[0]
	}

	result, err := runValidation(manifestPath, validateFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if !result.Valid {
		// Distinct exit code so CI can tell contract violations from
		// operational failures.
		os.Exit(exitcode.ValidationError)
	}
	return nil
}

// runValidation loads and validates a manifest file, writing the report to
// out. The boolean outcome lives in the returned result; err covers only
// operational failures such as an unreadable file or unknown format.
func runValidation(path, format string, out io.Writer) (*manifest.ValidationResult, error) {
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown output format %q (supported: text, json)", format)
	}

	data, err := manifest.ReadFile(path)
	if err != nil {
		return nil, err
	}

	validator, err := manifest.NewValidator()
	if err != nil {
		return nil, err
	}
	result := validator.Validate(data)

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, err
		}
	default:
		printValidationReport(out, path, result)
	}
	return result, nil
}

func printValidationReport(out io.Writer, path string, result *manifest.ValidationResult) {
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if result.Valid {
		fmt.Fprintf(out, "%s: %d violation(s)\n", path, 0)
		// Stable marker consumed by automation scanning output text.
		fmt.Fprintln(out, "Manifest is valid")
		return
	}

	fmt.Fprintf(out, "%s: %d violation(s)\n", path, len(result.Violations))
	for _, v := range result.Violations {
		fmt.Fprintf(out, "  %s\n", v.String())
	}
	fmt.Fprintln(out, "Manifest is invalid")
}
