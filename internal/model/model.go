// Package model defines the value types shared by the registry, search, and
// storage layers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// SearchMethod identifies a pluggable search algorithm.
type SearchMethod string

const (
	SearchMethodRegex    SearchMethod = "regex"
	SearchMethodBM25     SearchMethod = "bm25"
	SearchMethodSemantic SearchMethod = "semantic"
)

// ParseSearchMethod validates a method string against the supported set.
func ParseSearchMethod(s string) (SearchMethod, bool) {
	switch SearchMethod(s) {
	case SearchMethodRegex, SearchMethodBM25, SearchMethodSemantic:
		return SearchMethod(s), true
	default:
		return "", false
	}
}

// Tier is the usage-frequency bucket a tool currently occupies.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Uncategorized is the sentinel category key for tools with no category.
const Uncategorized = ""

// Tool is the unit of registration. Name is the unique, case-sensitive
// primary key.
type Tool struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	MCPServer    string          `json:"mcp_server,omitempty"`
	Tags         []string        `json:"tags"`
	Category     string          `json:"category,omitempty"`
	UseFrequency int             `json:"use_frequency"`
	LastUsed     *time.Time      `json:"last_used,omitempty"`
	Temperature  Tier            `json:"temperature"`
	DeferLoading bool            `json:"defer_loading"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing registry
// state.
func (t Tool) Clone() Tool {
	clone := t
	clone.Tags = append([]string(nil), t.Tags...)
	if t.LastUsed != nil {
		lu := *t.LastUsed
		clone.LastUsed = &lu
	}
	if t.InputSchema != nil {
		clone.InputSchema = append(json.RawMessage(nil), t.InputSchema...)
	}
	if t.OutputSchema != nil {
		clone.OutputSchema = append(json.RawMessage(nil), t.OutputSchema...)
	}
	return clone
}

// SortedTags returns a sorted copy of the tool's tags, used anywhere a
// canonical ordering is required (fingerprinting, persisted records).
func (t Tool) SortedTags() []string {
	tags := append([]string(nil), t.Tags...)
	sort.Strings(tags)
	return tags
}

// SearchResult is a single scored hit returned by a search algorithm.
type SearchResult struct {
	ToolName    string  `json:"tool_name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	MatchReason string  `json:"match_reason"`
}

// fingerprintEntry is the canonical per-tool shape hashed into a fingerprint.
type fingerprintEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}

// Fingerprint computes a stable content hash over the given tool set. It
// changes iff any semantically meaningful field of any tool changes, or set
// membership changes. The tool list is sorted by name before hashing so
// fingerprinting is order-independent.
func Fingerprint(tools []Tool) string {
	sorted := make([]Tool, len(tools))
	copy(sorted, tools)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	entries := make([]fingerprintEntry, len(sorted))
	for i, t := range sorted {
		entries[i] = fingerprintEntry{
			Name:        t.Name,
			Description: t.Description,
			Tags:        t.SortedTags(),
			Category:    t.Category,
		}
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		// Marshaling a slice of plain structs/strings cannot fail; treat it
		// as unreachable rather than threading an error through every
		// search algorithm's hot path.
		panic("model: fingerprint marshal: " + err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// CategoryKey returns the category index key for a tool, mapping the empty
// category onto the sentinel key.
func CategoryKey(category string) string {
	if strings.TrimSpace(category) == "" {
		return Uncategorized
	}
	return category
}

// Thresholds configures tier classification, shared by the registry (tier
// maps) and the flat-file storage backend (in-memory temperature
// pushdown — see storage/jsonstore).
type Thresholds struct {
	HotUseFrequency  int
	WarmUseFrequency int
	HotInactive      time.Duration
	WarmInactive     time.Duration
}

// DefaultThresholds matches spec §4.3.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HotUseFrequency:  10,
		WarmUseFrequency: 3,
		HotInactive:      30 * 24 * time.Hour,
		WarmInactive:     60 * 24 * time.Hour,
	}
}

// Classify derives a tier from a use_frequency counter.
func (th Thresholds) Classify(useFrequency int) Tier {
	switch {
	case useFrequency >= th.HotUseFrequency:
		return TierHot
	case useFrequency >= th.WarmUseFrequency:
		return TierWarm
	default:
		return TierCold
	}
}
