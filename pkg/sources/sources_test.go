package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Ref
		wantErr  bool
	}{
		{
			name:     "bare owner/repo",
			line:     "BurntSushi/ripgrep",
			expected: Ref{Owner: "BurntSushi", Name: "ripgrep"},
		},
		{
			name:     "https url",
			line:     "https://github.com/sharkdp/bat",
			expected: Ref{Owner: "sharkdp", Name: "bat"},
		},
		{
			name:     "https url with .git suffix",
			line:     "https://github.com/sharkdp/fd.git",
			expected: Ref{Owner: "sharkdp", Name: "fd"},
		},
		{
			name:     "scp-like ssh url",
			line:     "git@github.com:junegunn/fzf.git",
			expected: Ref{Owner: "junegunn", Name: "fzf"},
		},
		{
			name:     "trailing path segments ignored",
			line:     "https://github.com/cli/cli/releases",
			expected: Ref{Owner: "cli", Name: "cli"},
		},
		{
			name:    "wrong host",
			line:    "https://gitlab.com/owner/repo",
			wantErr: true,
		},
		{
			name:    "single segment",
			line:    "ripgrep",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRef(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedSource)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ref)
		})
	}
}

func TestParseList(t *testing.T) {
	input := `# Curated tool sources
https://github.com/BurntSushi/ripgrep

sharkdp/bat
not a valid line at all ???
# trailing comment
https://github.com/junegunn/fzf.git
`
	refs, warnings, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []Ref{
		{Owner: "BurntSushi", Name: "ripgrep"},
		{Owner: "sharkdp", Name: "bat"},
		{Owner: "junegunn", Name: "fzf"},
	}, refs)

	require.Len(t, warnings, 1)
	assert.Equal(t, 5, warnings[0].Line)
	assert.ErrorIs(t, warnings[0].Err, ErrMalformedSource)
}

func TestParseListOrderPreserved(t *testing.T) {
	input := "z-owner/z-tool\na-owner/a-tool\n"
	refs, _, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "z-owner/z-tool", refs[0].String())
	assert.Equal(t, "a-owner/a-tool", refs[1].String())
}

func TestParseListEmpty(t *testing.T) {
	_, _, err := ParseList(strings.NewReader("# only comments\n\n"))
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestParseListOnlyMalformed(t *testing.T) {
	refs, warnings, err := ParseList(strings.NewReader("this is not a repo line ???\n"))
	assert.ErrorIs(t, err, ErrNoSources)
	assert.Nil(t, refs)
	assert.Len(t, warnings, 1)
}

func TestRefURL(t *testing.T) {
	ref := Ref{Owner: "BurntSushi", Name: "ripgrep"}
	assert.Equal(t, "https://github.com/BurntSushi/ripgrep", ref.URL())
}
