// Package registry implements the authoritative in-memory tool catalog:
// the primary map, tier maps, category index, usage accounting, and
// tier promotion/demotion.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registryerr"
	"github.com/maric-labs/registrytools/internal/search"
)

// HotTools is the narrow storage capability the registry needs to load the
// hot tier at startup, kept separate from the full storage.Store interface
// so the registry package does not import the storage package.
type HotTools interface {
	LoadByTemperature(ctx context.Context, tier model.Tier, limit int) ([]model.Tool, error)
}

// Registry owns the tool catalog. All exported methods are safe for
// concurrent use.
type Registry struct {
	mu sync.RWMutex

	thresholds model.Thresholds
	logger     *zap.SugaredLogger

	primary  map[string]model.Tool
	hot      map[string]model.Tool
	warm     map[string]model.Tool
	cold     map[string]model.Tool
	category map[string]map[string]struct{}

	searchers map[model.SearchMethod]search.Algorithm
}

// New constructs an empty registry.
func New(thresholds model.Thresholds, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		thresholds: thresholds,
		logger:     logger,
		primary:    make(map[string]model.Tool),
		hot:        make(map[string]model.Tool),
		warm:       make(map[string]model.Tool),
		cold:       make(map[string]model.Tool),
		category:   make(map[string]map[string]struct{}),
		searchers:  make(map[model.SearchMethod]search.Algorithm),
	}
}

// RegisterSearcher associates a method tag with an algorithm instance. It
// fails if the algorithm's self-reported method disagrees with the
// registration tag.
func (r *Registry) RegisterSearcher(method model.SearchMethod, algo search.Algorithm) error {
	if algo.Method() != method {
		return fmt.Errorf("registry: searcher reports method %q, registered as %q: %w", algo.Method(), method, registryerr.ErrConfiguration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchers[method] = algo
	return nil
}

func (r *Registry) tierMapLocked(tier model.Tier) map[string]model.Tool {
	switch tier {
	case model.TierHot:
		return r.hot
	case model.TierWarm:
		return r.warm
	default:
		return r.cold
	}
}

// Register upserts a tool: replaces any prior tier placement, recomputes
// its tier from use_frequency, and updates the category index.
func (r *Registry) Register(tool model.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(tool)
}

func (r *Registry) registerLocked(tool model.Tool) {
	tool = tool.Clone()

	if existing, ok := r.primary[tool.Name]; ok {
		delete(r.tierMapLocked(existing.Temperature), tool.Name)
		r.removeFromCategoryLocked(tool.Name, existing.Category)
	}

	tool.Temperature = r.thresholds.Classify(tool.UseFrequency)
	r.primary[tool.Name] = tool
	r.tierMapLocked(tool.Temperature)[tool.Name] = tool
	r.addToCategoryLocked(tool.Name, tool.Category)

	if r.logger != nil {
		r.logger.Debugw("registered tool", "name", tool.Name, "tier", tool.Temperature)
	}
}

func (r *Registry) addToCategoryLocked(name, category string) {
	key := model.CategoryKey(category)
	if r.category[key] == nil {
		r.category[key] = make(map[string]struct{})
	}
	r.category[key][name] = struct{}{}
}

func (r *Registry) removeFromCategoryLocked(name, category string) {
	key := model.CategoryKey(category)
	if set, ok := r.category[key]; ok {
		delete(set, name)
		if len(set) == 0 {
			delete(r.category, key)
		}
	}
}

// RegisterMany applies Register per tool. A single failure cannot occur at
// this layer (Register never fails); index rebuild is deferred to the next
// search, matching the spec's "batch is not atomic at this layer" note.
func (r *Registry) RegisterMany(tools []model.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.registerLocked(t)
	}
}

// Unregister removes a tool by name, reporting whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.primary[name]
	if !ok {
		return false
	}
	delete(r.primary, name)
	delete(r.tierMapLocked(tool.Temperature), name)
	r.removeFromCategoryLocked(name, tool.Category)
	if r.logger != nil {
		r.logger.Debugw("unregistered tool", "name", name)
	}
	return true
}

// Get returns a copy of the named tool, or false if it does not exist.
func (r *Registry) Get(name string) (model.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.primary[name]
	if !ok {
		return model.Tool{}, false
	}
	return t.Clone(), true
}

// List returns tools, optionally filtered to a single category. An empty
// category string returns every tool.
func (r *Registry) List(category string) []model.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if category == "" {
		return r.snapshotLocked(r.primary)
	}

	key := model.CategoryKey(category)
	names := r.category[key]
	out := make([]model.Tool, 0, len(names))
	for name := range names {
		out = append(out, r.primary[name].Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListCategories returns every known category key, including the
// uncategorized sentinel if any tool lacks a category.
func (r *Registry) ListCategories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.category))
	for key := range r.category {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) snapshotLocked(m map[string]model.Tool) []model.Tool {
	out := make([]model.Tool, 0, len(m))
	for _, t := range m {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Search looks up the registered algorithm for method and runs it over the
// full primary map.
func (r *Registry) Search(ctx context.Context, query string, method model.SearchMethod, k int) ([]model.SearchResult, error) {
	r.mu.RLock()
	algo, ok := r.searchers[method]
	tools := r.snapshotLocked(r.primary)
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: no searcher registered for method %q: %w", method, registryerr.ErrValidation)
	}
	return algo.Search(ctx, query, tools, k)
}

// SearchHotWarm restricts search to the hot+warm union and never triggers
// cold loading. Semantic search is not supported here: per spec, it is
// silently substituted with BM25 and logged, not raised as a validation
// error (see SPEC_FULL.md §9, Open Question 3).
func (r *Registry) SearchHotWarm(ctx context.Context, query string, method model.SearchMethod, k int) ([]model.SearchResult, error) {
	effectiveMethod := method
	if method == model.SearchMethodSemantic {
		if r.logger != nil {
			r.logger.Warnw("semantic search not supported for hot/warm search, substituting bm25", "requested_method", method)
		}
		effectiveMethod = model.SearchMethodBM25
	}

	r.mu.RLock()
	algo, ok := r.searchers[effectiveMethod]
	tools := make([]model.Tool, 0, len(r.hot)+len(r.warm))
	for _, t := range r.hot {
		tools = append(tools, t.Clone())
	}
	for _, t := range r.warm {
		tools = append(tools, t.Clone())
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: no searcher registered for method %q: %w", effectiveMethod, registryerr.ErrValidation)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return algo.Search(ctx, query, tools, k)
}

// UpdateUsage increments use_frequency, sets last_used to now, recomputes
// tier, and runs the demotion sweep if the new tier is hot or warm. Returns
// whether the tool existed.
func (r *Registry) UpdateUsage(name string) bool {
	return r.updateUsageAt(name, time.Now())
}

func (r *Registry) updateUsageAt(name string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.primary[name]
	if !ok {
		return false
	}

	oldTier := tool.Temperature
	tool.UseFrequency++
	tool.LastUsed = &now
	newTier := r.thresholds.Classify(tool.UseFrequency)
	tool.Temperature = newTier

	r.primary[name] = tool
	if newTier != oldTier {
		delete(r.tierMapLocked(oldTier), name)
	}
	r.tierMapLocked(newTier)[name] = tool

	if newTier == model.TierHot || newTier == model.TierWarm {
		r.runDowngradeSweepLocked(now)
	}

	if r.logger != nil {
		r.logger.Debugw("updated tool usage", "name", name, "use_frequency", tool.UseFrequency, "tier", newTier)
	}
	return true
}

// runDowngradeSweepLocked implements §4.3: a hot tool inactive beyond the
// hot window demotes to warm; a warm tool inactive beyond the warm window
// demotes to cold. Tools with no last_used never demote. This only ever
// runs as a side effect of UpdateUsage — see SPEC_FULL.md §9, Open
// Question 2: there is deliberately no background scheduler.
func (r *Registry) runDowngradeSweepLocked(now time.Time) {
	for name, tool := range r.hot {
		if tool.LastUsed == nil {
			continue
		}
		if now.Sub(*tool.LastUsed) >= r.thresholds.HotInactive {
			r.demoteLocked(name, tool, model.TierWarm)
		}
	}
	for name, tool := range r.warm {
		if tool.LastUsed == nil {
			continue
		}
		if now.Sub(*tool.LastUsed) >= r.thresholds.WarmInactive {
			r.demoteLocked(name, tool, model.TierCold)
		}
	}
}

func (r *Registry) demoteLocked(name string, tool model.Tool, newTier model.Tier) {
	delete(r.tierMapLocked(tool.Temperature), name)
	tool.Temperature = newTier
	r.primary[name] = tool
	r.tierMapLocked(newTier)[name] = tool
	if r.logger != nil {
		r.logger.Infow("demoted tool due to inactivity", "name", name, "new_tier", newTier)
	}
}

// UsageStats reports per-tier counts plus totals, extending the original
// implementation's get_usage_stats.
type UsageStats struct {
	TotalTools int            `json:"total_tools"`
	HotCount   int            `json:"hot_count"`
	WarmCount  int            `json:"warm_count"`
	ColdCount  int            `json:"cold_count"`
	Categories map[string]int `json:"categories"`
}

func (r *Registry) UsageStats() UsageStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make(map[string]int, len(r.category))
	for key, names := range r.category {
		categories[key] = len(names)
	}

	return UsageStats{
		TotalTools: len(r.primary),
		HotCount:   len(r.hot),
		WarmCount:  len(r.warm),
		ColdCount:  len(r.cold),
		Categories: categories,
	}
}

// GetMostUsed returns the k tools with the highest use_frequency,
// descending.
func (r *Registry) GetMostUsed(k int) []model.Tool {
	r.mu.RLock()
	all := r.snapshotLocked(r.primary)
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].UseFrequency != all[j].UseFrequency {
			return all[i].UseFrequency > all[j].UseFrequency
		}
		return all[i].Name < all[j].Name
	})
	if k > 0 && len(all) > k {
		all = all[:k]
	}
	return all
}

// RebuildIndexes force-rebuilds every registered algorithm's index against
// the current primary map, used after a bulk load.
func (r *Registry) RebuildIndexes() error {
	r.mu.RLock()
	tools := r.snapshotLocked(r.primary)
	searchers := make([]search.Algorithm, 0, len(r.searchers))
	for _, algo := range r.searchers {
		searchers = append(searchers, algo)
	}
	r.mu.RUnlock()

	for _, algo := range searchers {
		if err := algo.Index(tools); err != nil {
			return fmt.Errorf("registry: rebuild index for %q: %w", algo.Method(), err)
		}
	}
	return nil
}

// LoadHotTools queries storage for the hot tier only and registers the
// returned tools, used to warm the registry without a full load_all.
func (r *Registry) LoadHotTools(ctx context.Context, store HotTools, limit int) error {
	tools, err := store.LoadByTemperature(ctx, model.TierHot, limit)
	if err != nil {
		return fmt.Errorf("registry: load hot tools: %w", err)
	}
	r.RegisterMany(tools)
	return nil
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.primary)
}

// IsEmpty reports whether the registry has no tools.
func (r *Registry) IsEmpty() bool {
	return r.Count() == 0
}

// Clear removes every tool and category entry. It does not touch
// registered searchers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primary = make(map[string]model.Tool)
	r.hot = make(map[string]model.Tool)
	r.warm = make(map[string]model.Tool)
	r.cold = make(map[string]model.Tool)
	r.category = make(map[string]map[string]struct{})
}
