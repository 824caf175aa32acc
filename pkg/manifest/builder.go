package manifest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wenpm/bucketctl/pkg/logger"
	"github.com/wenpm/bucketctl/pkg/platform"
	"github.com/wenpm/bucketctl/pkg/release"
	"github.com/wenpm/bucketctl/pkg/sources"
)

// ErrZeroPackages indicates a run that produced no manifest records at all;
// the only per-repository failure that is fatal to the whole run.
var ErrZeroPackages = errors.New("zero packages generated")

// Discoverer is the upstream query surface the builder depends on.
// *release.Client satisfies it; tests inject fakes.
type Discoverer interface {
	LatestRelease(ctx context.Context, ref sources.Ref) (*release.Release, error)
	Repo(ctx context.Context, ref sources.Ref) (*release.Repository, error)
}

// SkipReason explains why a repository produced no manifest record.
type SkipReason string

const (
	SkipNoRelease      SkipReason = "no releases"
	SkipQueryFailed    SkipReason = "query failed"
	SkipNoUsableAssets SkipReason = "no usable assets"
)

// Skip records one repository excluded from the output.
type Skip struct {
	Ref    sources.Ref
	Reason SkipReason
	Err    error
}

// BuildResult aggregates one generation run: the manifest in source-list
// order plus every skipped repository with its reason.
type BuildResult struct {
	Manifest Manifest
	Skipped  []Skip
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Workers bounds concurrent upstream discoveries. Defaults to 4.
	Workers int

	// Rename maps "owner/repo" to a package name overriding the
	// repository name.
	Rename map[string]string
}

// Builder turns repository references into manifest records. Discovery of
// each repository is independent; a failed repository never aborts the rest
// of the batch.
type Builder struct {
	discoverer Discoverer
	classifier *platform.Classifier
	workers    int
	rename     map[string]string
}

// NewBuilder creates a Builder.
func NewBuilder(d Discoverer, c *platform.Classifier, opts BuilderOptions) *Builder {
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	return &Builder{
		discoverer: d,
		classifier: c,
		workers:    workers,
		rename:     opts.Rename,
	}
}

// Build fans out discovery across the references, classifies every release's
// assets and assembles the manifest preserving input order. It returns
// ErrZeroPackages (alongside the full result) when no repository yielded a
// usable record.
func (b *Builder) Build(ctx context.Context, refs []sources.Ref) (*BuildResult, error) {
	records := make([]*Record, len(refs))
	skips := make([]*Skip, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			select {
			case <-gctx.Done():
				skips[i] = &Skip{Ref: ref, Reason: SkipQueryFailed, Err: gctx.Err()}
				return nil
			default:
			}
			records[i], skips[i] = b.buildOne(gctx, ref)
			return nil
		})
	}

	// Workers report failures through the skip list, never as errors, so a
	// single bad repository cannot cancel in-flight work for the others.
	_ = g.Wait()

	result := &BuildResult{Manifest: Manifest{}}
	for i := range refs {
		if records[i] != nil {
			result.Manifest = append(result.Manifest, *records[i])
		}
		if skips[i] != nil {
			result.Skipped = append(result.Skipped, *skips[i])
		}
	}

	if len(result.Manifest) == 0 {
		return result, fmt.Errorf("%w from %d sources", ErrZeroPackages, len(refs))
	}
	return result, nil
}

// buildOne runs the discover → classify → assemble pipeline for a single
// repository. Exactly one of the return values is non-nil.
func (b *Builder) buildOne(ctx context.Context, ref sources.Ref) (*Record, *Skip) {
	rel, err := b.discoverer.LatestRelease(ctx, ref)
	if err != nil {
		if errors.Is(err, release.ErrNoRelease) {
			logger.Warn("no releases found", logger.String("repo", ref.String()))
			return nil, &Skip{Ref: ref, Reason: SkipNoRelease, Err: err}
		}
		logger.Warn("release query failed", logger.String("repo", ref.String()), logger.Err(err))
		return nil, &Skip{Ref: ref, Reason: SkipQueryFailed, Err: err}
	}

	platforms := b.resolvePlatforms(rel)
	if len(platforms) == 0 {
		logger.Warn("no usable assets", logger.String("repo", ref.String()), logger.String("tag", rel.Tag))
		return nil, &Skip{Ref: ref, Reason: SkipNoUsableAssets}
	}

	record := &Record{
		Name:      ref.Name,
		Repo:      ref.URL(),
		Version:   rel.Tag,
		Platforms: platforms,
	}

	// Metadata enrichment is best-effort: a failed repository lookup only
	// costs description/homepage/license, not the record itself.
	if repo, err := b.discoverer.Repo(ctx, ref); err != nil {
		logger.Warn("repository metadata unavailable", logger.String("repo", ref.String()), logger.Err(err))
	} else {
		if repo.Name != "" {
			record.Name = repo.Name
		}
		if repo.HTMLURL != "" {
			record.Repo = repo.HTMLURL
		}
		record.Description = repo.Description
		record.Homepage = repo.Homepage
		record.License = repo.License
	}

	if renamed, ok := b.rename[ref.String()]; ok && renamed != "" {
		record.Name = renamed
	}

	logger.Info("package resolved",
		logger.String("repo", ref.String()),
		logger.String("version", rel.Tag),
		logger.Int("platforms", len(platforms)))

	return record, nil
}

// resolvePlatforms classifies every asset and keeps one descriptor per
// platform. When two assets claim the same platform the archive-format
// preference order decides; ties keep the asset listed first in the release.
func (b *Builder) resolvePlatforms(rel *release.Release) map[string]Descriptor {
	names := make([]string, len(rel.Assets))
	for i, a := range rel.Assets {
		names[i] = a.Name
	}
	classified := b.classifier.ClassifyAll(names)

	chosen := make(map[string]release.Asset)
	for _, asset := range rel.Assets {
		for _, p := range classified[asset.Name] {
			id := p.String()
			current, ok := chosen[id]
			if !ok || archiveRank(asset.Name) < archiveRank(current.Name) {
				chosen[id] = asset
			}
		}
	}

	platforms := make(map[string]Descriptor, len(chosen))
	for id, asset := range chosen {
		platforms[id] = Descriptor{URL: asset.URL, Size: asset.Size}
	}
	return platforms
}

// archiveRank orders competing assets for the same platform: plain gzip
// tarballs beat exotic compressions, archives beat everything else.
func archiveRank(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"):
		return 0
	case strings.HasSuffix(lower, ".tgz"):
		return 1
	case strings.HasSuffix(lower, ".tar.xz"):
		return 2
	case strings.HasSuffix(lower, ".tar.bz2"):
		return 3
	case strings.HasSuffix(lower, ".zip"):
		return 4
	default:
		return 5
	}
}

// PlatformCoverage counts how many packages resolve each platform, sorted
// by platform identifier for stable reporting.
func (m Manifest) PlatformCoverage() []PlatformCount {
	counts := make(map[string]int)
	for _, record := range m {
		for id := range record.Platforms {
			counts[id]++
		}
	}
	result := make([]PlatformCount, 0, len(counts))
	for id, n := range counts {
		result = append(result, PlatformCount{Platform: id, Packages: n})
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Platform < result[b].Platform })
	return result
}

// PlatformCount is one row of the coverage summary.
type PlatformCount struct {
	Platform string
	Packages int
}
