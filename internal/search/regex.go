package search

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/maric-labs/registrytools/internal/model"
)

const matchReasonRegex = "regex_pattern_match"

// RegexAlgorithm scores tools by how strongly a compiled pattern matches
// their name, description, or tags. An invalid pattern is a normal
// no-match, not an error — see Search.
type RegexAlgorithm struct {
	caseSensitive bool

	mu          sync.RWMutex
	fingerprint string
}

// NewRegex constructs a regex algorithm. caseSensitive defaults to false
// per spec.
func NewRegex(caseSensitive bool) *RegexAlgorithm {
	return &RegexAlgorithm{caseSensitive: caseSensitive}
}

func (r *RegexAlgorithm) Method() model.SearchMethod { return model.SearchMethodRegex }

// Index records the fingerprint only; the regex algorithm has no
// precomputed structure to build.
func (r *RegexAlgorithm) Index(tools []model.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fingerprint = model.Fingerprint(tools)
	return nil
}

func (r *RegexAlgorithm) Search(_ context.Context, query string, tools []model.Tool, k int) ([]model.SearchResult, error) {
	if isBlankQuery(query) {
		return nil, nil
	}

	fp := model.Fingerprint(tools)
	r.mu.RLock()
	stale := fp != r.fingerprint
	r.mu.RUnlock()
	if stale {
		r.mu.Lock()
		if fp != r.fingerprint {
			r.fingerprint = fp
		}
		r.mu.Unlock()
	}

	flags := "(?i)"
	if r.caseSensitive {
		flags = ""
	}
	pattern, err := regexp.Compile(flags + query)
	if err != nil {
		return nil, nil
	}

	results := make([]model.SearchResult, 0, len(tools))
	for _, t := range tools {
		score := scoreRegex(pattern, t)
		if score <= 0 {
			continue
		}
		results = append(results, model.SearchResult{
			ToolName:    t.Name,
			Description: t.Description,
			Score:       score,
			MatchReason: matchReasonRegex,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	normalize(results)
	return results, nil
}

func scoreRegex(pattern *regexp.Regexp, t model.Tool) float64 {
	var score float64

	if fullMatch(pattern, t.Name) {
		score = 1.0
	} else if pattern.MatchString(t.Name) {
		score = max(score, 0.8)
	}

	if fullMatch(pattern, t.Description) {
		score = max(score, 0.6)
	} else if pattern.MatchString(t.Description) {
		score = max(score, 0.4)
	}

	for _, tag := range t.Tags {
		if fullMatch(pattern, tag) {
			score = max(score, 0.5)
		} else if pattern.MatchString(tag) {
			score = max(score, 0.3)
		}
	}

	return score
}

func fullMatch(pattern *regexp.Regexp, s string) bool {
	loc := pattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
