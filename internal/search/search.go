// Package search implements the pluggable search-algorithm contract: each
// algorithm indexes a tool snapshot, caches its index against a content
// fingerprint, and scores queries into normalized [0,1] results.
package search

import (
	"context"

	"github.com/maric-labs/registrytools/internal/model"
)

// Algorithm is the capability every search backend exposes. It deliberately
// stays narrow — index-and-search — rather than modeling an inheritance
// hierarchy; optional capabilities (layered indexing, model unload) are
// detected with a type assertion against the narrower interfaces below.
type Algorithm interface {
	Method() model.SearchMethod
	Index(tools []model.Tool) error
	Search(ctx context.Context, query string, tools []model.Tool, k int) ([]model.SearchResult, error)
}

// layeredIndexer is implemented by algorithms that can prioritize hot tools
// at index time (useful for tri-tier registries; purely an optimization).
type layeredIndexer interface {
	IndexLayered(hot, warm, cold []model.Tool) error
}

// unloader is implemented by algorithms that hold an expensive resource
// (e.g. an embedding model) that can be released on demand.
type unloader interface {
	Unload() error
}

// IndexLayered calls a.IndexLayered if the algorithm supports it, otherwise
// falls back to a flat Index over the concatenated tiers.
func IndexLayered(a Algorithm, hot, warm, cold []model.Tool) error {
	if li, ok := a.(layeredIndexer); ok {
		return li.IndexLayered(hot, warm, cold)
	}
	all := make([]model.Tool, 0, len(hot)+len(warm)+len(cold))
	all = append(all, hot...)
	all = append(all, warm...)
	all = append(all, cold...)
	return a.Index(all)
}

// Unload calls a.Unload if the algorithm supports it; otherwise it is a
// no-op.
func Unload(a Algorithm) error {
	if u, ok := a.(unloader); ok {
		return u.Unload()
	}
	return nil
}

// normalize maps raw scores onto [0,1] via (raw-min)/(max-min); a single
// result or an all-equal set maps to 1.0. Input must be pre-sorted
// descending and already truncated to k; normalize mutates scores in place.
func normalize(results []model.SearchResult) {
	if len(results) == 0 {
		return
	}
	min, max := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	if len(results) == 1 || max == min {
		for i := range results {
			results[i].Score = 1.0
		}
		return
	}
	spread := max - min
	for i := range results {
		results[i].Score = (results[i].Score - min) / spread
	}
}

// isBlankQuery implements the repository's Open Question decision: an
// empty or whitespace-only query is match-none, not match-all.
func isBlankQuery(query string) bool {
	for _, r := range query {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
