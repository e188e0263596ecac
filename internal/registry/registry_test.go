package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registryerr"
	"github.com/maric-labs/registrytools/internal/search"
)

func testThresholds() model.Thresholds {
	return model.Thresholds{
		HotUseFrequency:  10,
		WarmUseFrequency: 3,
		HotInactive:      30 * 24 * time.Hour,
		WarmInactive:     60 * 24 * time.Hour,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(testThresholds(), zap.NewNop().Sugar())
	require.NoError(t, r.RegisterSearcher(model.SearchMethodRegex, search.NewRegex(false)))
	return r
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1", Description: "first tool", Category: "util"})

	tool, ok := r.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "t1", tool.Name)
	assert.Equal(t, model.TierCold, tool.Temperature)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Register_ClassifiesTierFromUseFrequency(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "hot-tool", UseFrequency: 15})
	r.Register(model.Tool{Name: "warm-tool", UseFrequency: 5})
	r.Register(model.Tool{Name: "cold-tool", UseFrequency: 1})

	hot, _ := r.Get("hot-tool")
	warm, _ := r.Get("warm-tool")
	cold, _ := r.Get("cold-tool")
	assert.Equal(t, model.TierHot, hot.Temperature)
	assert.Equal(t, model.TierWarm, warm.Temperature)
	assert.Equal(t, model.TierCold, cold.Temperature)
}

func TestRegistry_Register_UpsertMovesTierOnReregistration(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1", UseFrequency: 1, Category: "a"})
	r.Register(model.Tool{Name: "t1", UseFrequency: 20, Category: "b"})

	tool, ok := r.Get("t1")
	require.True(t, ok)
	assert.Equal(t, model.TierHot, tool.Temperature)

	assert.Empty(t, r.List("a"))
	assert.Len(t, r.List("b"), 1)
}

func TestRegistry_Unregister(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1", Category: "util"})

	assert.True(t, r.Unregister("t1"))
	assert.False(t, r.Unregister("t1"))
	_, ok := r.Get("t1")
	assert.False(t, ok)
	assert.Empty(t, r.ListCategories())
}

func TestRegistry_ListCategories_IncludesUncategorizedSentinel(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1"})
	r.Register(model.Tool{Name: "t2", Category: "github"})

	categories := r.ListCategories()
	assert.ElementsMatch(t, []string{model.Uncategorized, "github"}, categories)
}

func TestRegistry_Search_UsesRegisteredAlgorithm(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "github.create_pr", Description: "Create a pull request"})
	r.Register(model.Tool{Name: "slack.post_message", Description: "Post a message"})

	results, err := r.Search(context.Background(), "pull request", model.SearchMethodRegex, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "github.create_pr", results[0].ToolName)
}

func TestRegistry_Search_UnknownMethodIsValidationError(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Search(context.Background(), "q", model.SearchMethodBM25, 10)
	assert.ErrorIs(t, err, registryerr.ErrValidation)
}

func TestRegistry_SearchHotWarm_SubstitutesSemanticWithBM25(t *testing.T) {
	r := New(testThresholds(), zap.NewNop().Sugar())
	bm25, err := search.NewBM25(search.DefaultBM25Params(), zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, r.RegisterSearcher(model.SearchMethodBM25, bm25))

	r.Register(model.Tool{Name: "hot-tool", Description: "search github repositories", UseFrequency: 15})

	results, err := r.SearchHotWarm(context.Background(), "github repositories", model.SearchMethodSemantic, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hot-tool", results[0].ToolName)
}

func TestRegistry_SearchHotWarm_ExcludesColdTools(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "hot-tool", Description: "hot search target", UseFrequency: 15})
	r.Register(model.Tool{Name: "cold-tool", Description: "hot search target", UseFrequency: 0})

	results, err := r.SearchHotWarm(context.Background(), "hot search target", model.SearchMethodRegex, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hot-tool", results[0].ToolName)
}

func TestRegistry_UpdateUsage_PromotesAndStampsLastUsed(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1", UseFrequency: 9})

	assert.True(t, r.UpdateUsage("t1"))
	tool, _ := r.Get("t1")
	assert.Equal(t, 10, tool.UseFrequency)
	assert.Equal(t, model.TierHot, tool.Temperature)
	require.NotNil(t, tool.LastUsed)

	assert.False(t, r.UpdateUsage("missing"))
}

func TestRegistry_DowngradeSweep_DemotesInactiveHotAndWarmTools(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "stale-hot", UseFrequency: 15})
	r.Register(model.Tool{Name: "stale-warm", UseFrequency: 5})
	r.Register(model.Tool{Name: "fresh-hot", UseFrequency: 15})

	longAgo := time.Now().Add(-100 * 24 * time.Hour)
	r.mu.Lock()
	stale := r.primary["stale-hot"]
	stale.LastUsed = &longAgo
	r.primary["stale-hot"] = stale
	r.hot["stale-hot"] = stale

	staleWarm := r.primary["stale-warm"]
	staleWarm.LastUsed = &longAgo
	r.primary["stale-warm"] = staleWarm
	r.warm["stale-warm"] = staleWarm
	r.mu.Unlock()

	// Trigger the sweep via a fresh-hot usage update, which keeps
	// fresh-hot's own last_used recent.
	r.UpdateUsage("fresh-hot")

	// 100 days exceeds both windows: the hot pass moves stale-hot to warm,
	// and the warm pass that follows moves it on to cold.
	demoted, _ := r.Get("stale-hot")
	assert.Equal(t, model.TierCold, demoted.Temperature)

	demotedWarm, _ := r.Get("stale-warm")
	assert.Equal(t, model.TierCold, demotedWarm.Temperature)

	fresh, _ := r.Get("fresh-hot")
	assert.Equal(t, model.TierHot, fresh.Temperature)
}

func TestRegistry_UsageStats(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "hot1", UseFrequency: 15, Category: "a"})
	r.Register(model.Tool{Name: "warm1", UseFrequency: 5, Category: "a"})
	r.Register(model.Tool{Name: "cold1", UseFrequency: 0, Category: "b"})

	stats := r.UsageStats()
	assert.Equal(t, 3, stats.TotalTools)
	assert.Equal(t, 1, stats.HotCount)
	assert.Equal(t, 1, stats.WarmCount)
	assert.Equal(t, 1, stats.ColdCount)
	assert.Equal(t, 2, stats.Categories["a"])
	assert.Equal(t, 1, stats.Categories["b"])
}

func TestRegistry_GetMostUsed_SortsDescendingWithNameTiebreak(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "b", UseFrequency: 5})
	r.Register(model.Tool{Name: "a", UseFrequency: 5})
	r.Register(model.Tool{Name: "c", UseFrequency: 9})

	top := r.GetMostUsed(2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Name)
	assert.Equal(t, "a", top[1].Name)
}

type fakeHotStore struct {
	tools []model.Tool
}

func (f fakeHotStore) LoadByTemperature(_ context.Context, tier model.Tier, limit int) ([]model.Tool, error) {
	var out []model.Tool
	for _, t := range f.tools {
		if t.Temperature == tier {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestRegistry_LoadHotTools(t *testing.T) {
	r := newTestRegistry(t)
	store := fakeHotStore{tools: []model.Tool{
		{Name: "hot1", Temperature: model.TierHot, UseFrequency: 15},
		{Name: "cold1", Temperature: model.TierCold, UseFrequency: 0},
	}}

	require.NoError(t, r.LoadHotTools(context.Background(), store, 0))
	assert.Equal(t, 1, r.Count())
	_, ok := r.Get("hot1")
	assert.True(t, ok)
}

func TestRegistry_RebuildIndexes(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1", Description: "findable text"})
	require.NoError(t, r.RebuildIndexes())

	results, err := r.Search(context.Background(), "findable", model.SearchMethodRegex, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRegistry_ClearRemovesEverything(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(model.Tool{Name: "t1", Category: "a"})
	r.Clear()

	assert.True(t, r.IsEmpty())
	assert.Empty(t, r.ListCategories())
}

func TestRegistry_RegisterSearcher_RejectsMethodMismatch(t *testing.T) {
	r := New(testThresholds(), zap.NewNop().Sugar())
	err := r.RegisterSearcher(model.SearchMethodBM25, search.NewRegex(false))
	assert.Error(t, err)
}
