package platform

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy configures the classifier behavior that is not derivable from the
// filename alone.
type Policy struct {
	// DefaultArch is assumed for assets that name an OS but no architecture.
	// Empty means x86_64. See DefaultArch.
	DefaultArch Arch

	// Exclude holds doublestar glob patterns for asset names that must never
	// be classified (matched case-insensitively against the bare filename).
	Exclude []string
}

// Classifier infers platforms from asset filenames using an ordered marker
// table. It is a pure function of its inputs: no network, no mutation.
type Classifier struct {
	policy Policy
}

// NewClassifier creates a classifier with the given policy.
func NewClassifier(policy Policy) *Classifier {
	if policy.DefaultArch == "" {
		policy.DefaultArch = ArchX8664
	}
	return &Classifier{policy: policy}
}

// archiveExtensions are the only distributable formats considered for
// classification. Installers, bare binaries and package formats are left to
// the unclassifiable outcome rather than guessed at.
var archiveExtensions = []string{".tar.gz", ".tgz", ".zip", ".tar.xz", ".tar.bz2"}

// excludedSuffixes mark checksums, signatures and metadata companions.
var excludedSuffixes = []string{
	".sha256", ".sha512", ".md5", ".sum", ".sig", ".asc", ".pem", ".sbom", ".json", ".txt",
}

// sourceTokens mark source archives that must never be treated as binaries.
var sourceTokens = []string{"src", "source"}

// osMarkers is evaluated in order; darwin precedes windows so that the "win"
// substring inside "darwin" can never bind to windows.
var osMarkers = []struct {
	re *regexp.Regexp
	os OS
}{
	{regexp.MustCompile(`apple-darwin|darwin|macos|osx`), OSDarwin},
	{regexp.MustCompile(`windows|win64|win32|pc-windows`), OSWindows},
	{regexp.MustCompile(`linux|unknown-linux`), OSLinux},
}

// archMarkers is evaluated in order; wider tokens precede narrower ones so
// x86_64 binds before the bare x86 fallback.
var archMarkers = []struct {
	re   *regexp.Regexp
	arch Arch
}{
	{regexp.MustCompile(`x86_64|amd64|x64`), ArchX8664},
	{regexp.MustCompile(`aarch64|arm64`), ArchAarch64},
	{regexp.MustCompile(`armv7|armhf|arm7`), ArchARMv7},
	{regexp.MustCompile(`i686|i386|win32|x86`), ArchI686},
}

// Excluded reports whether the asset name is a checksum, signature, source
// archive or policy-excluded file and must be skipped entirely.
func (c *Classifier) Excluded(name string) bool {
	lower := strings.ToLower(name)

	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}

	for _, token := range tokenize(lower) {
		for _, src := range sourceTokens {
			if token == src {
				return true
			}
		}
	}

	for _, pattern := range c.policy.Exclude {
		if ok, err := doublestar.Match(strings.ToLower(pattern), lower); err == nil && ok {
			return true
		}
	}

	return false
}

// Classify maps one asset filename to the set of platforms it satisfies.
// The result is empty for unrecognized, excluded or non-archive assets;
// an explicit unclassifiable outcome is preferred over a guessed default.
func (c *Classifier) Classify(name string) []Platform {
	lower := strings.ToLower(name)

	if c.Excluded(name) || !isArchive(lower) {
		return nil
	}

	os, osFound := detectOS(lower)
	if !osFound {
		return nil
	}

	// Universal macOS builds satisfy both darwin architectures.
	if os == OSDarwin && strings.Contains(lower, "universal") {
		return []Platform{
			{OS: OSDarwin, Arch: ArchX8664},
			{OS: OSDarwin, Arch: ArchAarch64},
		}
	}

	arch, archFound := detectArch(lower)
	if !archFound {
		arch = c.policy.DefaultArch
	}

	return []Platform{{OS: os, Arch: arch}}
}

// ClassifyAll classifies every asset name in one release together, applying
// the companion rule: an asset naming an OS without an architecture only
// receives the policy default when no sibling claims the same OS with an
// explicit architecture.
func (c *Classifier) ClassifyAll(names []string) map[string][]Platform {
	explicit := make(map[OS]bool)
	for _, name := range names {
		lower := strings.ToLower(name)
		if c.Excluded(name) || !isArchive(lower) {
			continue
		}
		if os, ok := detectOS(lower); ok {
			if _, archOK := detectArch(lower); archOK {
				explicit[os] = true
			}
		}
	}

	result := make(map[string][]Platform, len(names))
	for _, name := range names {
		lower := strings.ToLower(name)
		platforms := c.Classify(name)

		// Drop the default-arch assumption when a companion asset covers
		// the OS explicitly; the ambiguous asset stays unclassified.
		if len(platforms) == 1 {
			if _, archOK := detectArch(lower); !archOK && !strings.Contains(lower, "universal") && explicit[platforms[0].OS] {
				platforms = nil
			}
		}

		if len(platforms) > 0 {
			result[name] = platforms
		}
	}
	return result
}

func isArchive(lower string) bool {
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func detectOS(lower string) (OS, bool) {
	for _, marker := range osMarkers {
		if marker.re.MatchString(lower) {
			return marker.os, true
		}
	}
	return "", false
}

func detectArch(lower string) (Arch, bool) {
	for _, marker := range archMarkers {
		if marker.re.MatchString(lower) {
			return marker.arch, true
		}
	}
	return "", false
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

func tokenize(lower string) []string {
	return tokenSplit.Split(lower, -1)
}
