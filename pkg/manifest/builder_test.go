package manifest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenpm/bucketctl/pkg/platform"
	"github.com/wenpm/bucketctl/pkg/release"
	"github.com/wenpm/bucketctl/pkg/sources"
)

// fakeDiscoverer serves canned releases and repository metadata keyed by
// "owner/repo".
type fakeDiscoverer struct {
	releases   map[string]*release.Release
	repos      map[string]*release.Repository
	releaseErr map[string]error
	repoErr    map[string]error
}

func (f *fakeDiscoverer) LatestRelease(_ context.Context, ref sources.Ref) (*release.Release, error) {
	if err, ok := f.releaseErr[ref.String()]; ok {
		return nil, err
	}
	if rel, ok := f.releases[ref.String()]; ok {
		return rel, nil
	}
	return nil, release.ErrNoRelease
}

func (f *fakeDiscoverer) Repo(_ context.Context, ref sources.Ref) (*release.Repository, error) {
	if err, ok := f.repoErr[ref.String()]; ok {
		return nil, err
	}
	if repo, ok := f.repos[ref.String()]; ok {
		return repo, nil
	}
	return nil, errors.New("repository not found")
}

func newTestBuilder(d Discoverer, opts BuilderOptions) *Builder {
	return NewBuilder(d, platform.NewClassifier(platform.Policy{}), opts)
}

func ripgrepRelease() *release.Release {
	return &release.Release{
		Tag: "14.1.0",
		Assets: []release.Asset{
			{Name: "ripgrep-14.1.0-x86_64-unknown-linux-musl.tar.gz", URL: "https://example.com/rg-linux.tar.gz", Size: 100},
			{Name: "ripgrep-14.1.0-x86_64-pc-windows-msvc.zip", URL: "https://example.com/rg-windows.zip", Size: 200},
			{Name: "ripgrep-14.1.0-x86_64-unknown-linux-musl.tar.gz.sha256", URL: "https://example.com/rg-linux.sha256", Size: 1},
		},
	}
}

func TestBuildTwoRepositories(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"BurntSushi/ripgrep": ripgrepRelease(),
			"sharkdp/bat": {
				Tag: "v0.24.0",
				Assets: []release.Asset{
					{Name: "bat-v0.24.0-x86_64-apple-darwin.tar.gz", URL: "https://example.com/bat-darwin.tar.gz", Size: 300},
				},
			},
		},
		repos: map[string]*release.Repository{
			"BurntSushi/ripgrep": {
				Name:        "ripgrep",
				Description: "recursively searches directories for a regex pattern",
				HTMLURL:     "https://github.com/BurntSushi/ripgrep",
				License:     "Unlicense",
			},
			"sharkdp/bat": {
				Name:    "bat",
				HTMLURL: "https://github.com/sharkdp/bat",
				License: "MIT",
			},
		},
	}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{
		{Owner: "BurntSushi", Name: "ripgrep"},
		{Owner: "sharkdp", Name: "bat"},
	})
	require.NoError(t, err)
	require.Len(t, result.Manifest, 2)
	assert.Empty(t, result.Skipped)

	// Input order preserved
	rg := result.Manifest[0]
	assert.Equal(t, "ripgrep", rg.Name)
	assert.Equal(t, "https://github.com/BurntSushi/ripgrep", rg.Repo)
	assert.Equal(t, "14.1.0", rg.Version)
	assert.Equal(t, "Unlicense", rg.License)
	require.Contains(t, rg.Platforms, "linux-x86_64")
	require.Contains(t, rg.Platforms, "windows-x86_64")
	assert.Equal(t, int64(100), rg.Platforms["linux-x86_64"].Size)

	bat := result.Manifest[1]
	assert.Equal(t, "bat", bat.Name)
	require.Contains(t, bat.Platforms, "darwin-x86_64")

	// Every emitted record has at least one platform
	for _, record := range result.Manifest {
		assert.NotEmpty(t, record.Platforms)
	}
}

func TestBuildPartialFailure(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"good/tool": {
				Tag:    "v1.0.0",
				Assets: []release.Asset{{Name: "tool-linux-x86_64.tar.gz", URL: "https://example.com/t.tar.gz", Size: 10}},
			},
		},
		releaseErr: map[string]error{
			"flaky/tool": release.ErrQueryFailed,
		},
		repos: map[string]*release.Repository{
			"good/tool": {Name: "tool", HTMLURL: "https://github.com/good/tool"},
		},
	}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{
		{Owner: "flaky", Name: "tool"},
		{Owner: "good", Name: "tool"},
		{Owner: "silent", Name: "tool"},
	})
	require.NoError(t, err)

	require.Len(t, result.Manifest, 1)
	assert.Equal(t, "tool", result.Manifest[0].Name)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, SkipQueryFailed, result.Skipped[0].Reason)
	assert.Equal(t, "flaky/tool", result.Skipped[0].Ref.String())
	assert.Equal(t, SkipNoRelease, result.Skipped[1].Reason)
	assert.Equal(t, "silent/tool", result.Skipped[1].Ref.String())
}

func TestBuildNoUsableAssets(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"acme/widget": {
				Tag: "v2.0.0",
				Assets: []release.Asset{
					{Name: "widget.sha256", URL: "https://example.com/c", Size: 1},
					{Name: "widget-2.0.0-src.tar.gz", URL: "https://example.com/s", Size: 500},
				},
			},
		},
	}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{{Owner: "acme", Name: "widget"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroPackages)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkipNoUsableAssets, result.Skipped[0].Reason)
}

func TestBuildZeroPackagesIsFatal(t *testing.T) {
	d := &fakeDiscoverer{}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{
		{Owner: "a", Name: "x"},
		{Owner: "b", Name: "y"},
	})
	assert.ErrorIs(t, err, ErrZeroPackages)
	assert.Empty(t, result.Manifest)
	assert.Len(t, result.Skipped, 2)
}

func TestBuildConflictResolutionPrefersTarball(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"acme/tool": {
				Tag: "v1.0.0",
				Assets: []release.Asset{
					{Name: "tool-linux-x86_64.zip", URL: "https://example.com/tool.zip", Size: 10},
					{Name: "tool-linux-x86_64.tar.gz", URL: "https://example.com/tool.tar.gz", Size: 20},
				},
			},
		},
	}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{{Owner: "acme", Name: "tool"}})
	require.NoError(t, err)

	desc := result.Manifest[0].Platforms["linux-x86_64"]
	assert.Equal(t, "https://example.com/tool.tar.gz", desc.URL)
}

func TestBuildConflictTieKeepsFirstAsset(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"acme/tool": {
				Tag: "v1.0.0",
				Assets: []release.Asset{
					{Name: "tool-linux-amd64.tar.gz", URL: "https://example.com/first.tar.gz", Size: 10},
					{Name: "tool-linux-x86_64.tar.gz", URL: "https://example.com/second.tar.gz", Size: 20},
				},
			},
		},
	}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{{Owner: "acme", Name: "tool"}})
	require.NoError(t, err)

	desc := result.Manifest[0].Platforms["linux-x86_64"]
	assert.Equal(t, "https://example.com/first.tar.gz", desc.URL)
}

func TestBuildMetadataFailureFallsBackToRef(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"acme/tool": {
				Tag:    "v1.0.0",
				Assets: []release.Asset{{Name: "tool-linux-x86_64.tar.gz", URL: "https://example.com/t.tar.gz", Size: 10}},
			},
		},
		repoErr: map[string]error{
			"acme/tool": errors.New("metadata fetch failed"),
		},
	}

	b := newTestBuilder(d, BuilderOptions{})
	result, err := b.Build(context.Background(), []sources.Ref{{Owner: "acme", Name: "tool"}})
	require.NoError(t, err)

	record := result.Manifest[0]
	assert.Equal(t, "tool", record.Name)
	assert.Equal(t, "https://github.com/acme/tool", record.Repo)
	assert.Empty(t, record.Description)
}

func TestBuildRenameOverride(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"BurntSushi/ripgrep": ripgrepRelease(),
		},
		repos: map[string]*release.Repository{
			"BurntSushi/ripgrep": {Name: "ripgrep", HTMLURL: "https://github.com/BurntSushi/ripgrep"},
		},
	}

	b := newTestBuilder(d, BuilderOptions{Rename: map[string]string{"BurntSushi/ripgrep": "rg"}})
	result, err := b.Build(context.Background(), []sources.Ref{{Owner: "BurntSushi", Name: "ripgrep"}})
	require.NoError(t, err)
	assert.Equal(t, "rg", result.Manifest[0].Name)
}

func TestBuildRoundTripValidates(t *testing.T) {
	d := &fakeDiscoverer{
		releases: map[string]*release.Release{
			"BurntSushi/ripgrep": ripgrepRelease(),
		},
		repos: map[string]*release.Repository{
			"BurntSushi/ripgrep": {
				Name:        "ripgrep",
				Description: "line-oriented search tool",
				HTMLURL:     "https://github.com/BurntSushi/ripgrep",
				License:     "Unlicense",
			},
		},
	}

	b := newTestBuilder(d, BuilderOptions{Workers: 2})
	result, err := b.Build(context.Background(), []sources.Ref{{Owner: "BurntSushi", Name: "ripgrep"}})
	require.NoError(t, err)

	data, err := result.Manifest.Encode()
	require.NoError(t, err)

	validator, err := NewValidator()
	require.NoError(t, err)

	vres := validator.Validate(data)
	assert.True(t, vres.Valid, "violations: %v", vres.Violations)
	assert.Empty(t, vres.Violations)
}
