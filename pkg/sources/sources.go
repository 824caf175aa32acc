// Package sources reads the human-curated list of upstream repositories a
// bucket is generated from.
package sources

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

var (
	// ErrMalformedSource indicates a non-comment line that cannot be parsed
	// into an owner/repo reference.
	ErrMalformedSource = errors.New("malformed source line")

	// ErrNoSources indicates the list produced zero usable references.
	ErrNoSources = errors.New("no usable sources in list")
)

// Ref identifies one upstream GitHub repository. Immutable once parsed.
type Ref struct {
	Owner string
	Name  string
}

// String returns the short "owner/repo" form.
func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// URL returns the canonical browser URL for the repository.
func (r Ref) URL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name
}

// Warning records a skipped source line.
type Warning struct {
	Line int
	Text string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %q: %v", w.Line, w.Text, w.Err)
}

var bareRefPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+/[A-Za-z0-9._-]+$`)

// ParseRef parses a single source line into a Ref. Accepted forms are the
// bare "owner/repo" shorthand and any git endpoint URL pointing at
// github.com (https, ssh, scp-like).
func ParseRef(line string) (Ref, error) {
	line = strings.TrimSpace(line)
	trimmed := strings.TrimSuffix(line, ".git")

	if bareRefPattern.MatchString(trimmed) {
		owner, name, _ := strings.Cut(trimmed, "/")
		return Ref{Owner: owner, Name: name}, nil
	}

	ep, err := transport.NewEndpoint(line)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrMalformedSource, line, err)
	}
	if !strings.EqualFold(ep.Host, "github.com") {
		return Ref{}, fmt.Errorf("%w: %q: host %q is not github.com", ErrMalformedSource, line, ep.Host)
	}

	path := strings.Trim(strings.TrimSuffix(ep.Path, ".git"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, fmt.Errorf("%w: %q: expected owner/repo path", ErrMalformedSource, line)
	}

	return Ref{Owner: parts[0], Name: parts[1]}, nil
}

// ParseList reads a newline-delimited source list. Blank lines and lines
// starting with '#' are skipped. Malformed lines are skipped with a warning;
// only a wholly empty result is an error.
func ParseList(r io.Reader) ([]Ref, []Warning, error) {
	var refs []Ref
	var warnings []Warning

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref, err := ParseRef(line)
		if err != nil {
			warnings = append(warnings, Warning{Line: lineNo, Text: line, Err: err})
			continue
		}
		refs = append(refs, ref)
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("failed to read source list: %w", err)
	}

	if len(refs) == 0 {
		return nil, warnings, ErrNoSources
	}
	return refs, warnings, nil
}

// LoadFile reads a source list from disk.
func LoadFile(path string) ([]Ref, []Warning, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided CLI path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open source list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseList(f)
}
