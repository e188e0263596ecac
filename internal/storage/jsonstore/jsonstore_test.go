package jsonstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
)

func testThresholds() model.Thresholds {
	return model.Thresholds{HotUseFrequency: 10, WarmUseFrequency: 3}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.json")
	s, err := New(path, testThresholds(), zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func TestNew_RejectsNonJSONSuffix(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "tools.db"), testThresholds(), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestStore_Initialize_CreatesEmptyFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Initialize(context.Background()))

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))
}

func TestStore_SaveAndLoadAll_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lastUsed := time.Now().UTC().Truncate(time.Second)

	tool := model.Tool{
		Name:         "t1",
		Description:  "a tool",
		Tags:         []string{"b", "a"},
		Category:     "util",
		UseFrequency: 4,
		LastUsed:     &lastUsed,
	}
	require.NoError(t, s.Save(ctx, tool))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "t1", all[0].Name)
	assert.Equal(t, []string{"a", "b"}, all[0].Tags)
	require.NotNil(t, all[0].LastUsed)
	assert.True(t, lastUsed.Equal(*all[0].LastUsed))
}

func TestStore_LoadAll_MissingFileReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	all, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_SaveMany_SavesAllTools(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tools := []model.Tool{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	require.NoError(t, s.SaveMany(ctx, tools))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, model.Tool{Name: "t1"}))

	deleted, err := s.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_Delete_LastRecordRemovesFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, model.Tool{Name: "t1"}))
	_, err := s.Delete(ctx, "t1")
	require.NoError(t, err)

	_, statErr := os.Stat(s.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_LoadAll_SkipsCorruptRecordButKeepsOthers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o755))
	badJSON := `{
		"good": {"name": "good", "description": "ok", "tags": []},
		"bad":  {"name": "bad", "description": "broken", "tags": [], "last_used": "not-a-time"}
	}`
	require.NoError(t, os.WriteFile(s.path, []byte(badJSON), 0o644))

	all, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].Name)
}

func TestStore_LoadAll_WholeFileCorruptionIsFatal(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o755))
	require.NoError(t, os.WriteFile(s.path, []byte("not json at all"), 0o644))

	_, err := s.LoadAll(context.Background())
	assert.Error(t, err)
}

func TestStore_LoadByTemperature_ClassifiesFromUseFrequencyNotStoredField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveMany(ctx, []model.Tool{
		{Name: "hot1", UseFrequency: 15, Temperature: model.TierCold},
		{Name: "cold1", UseFrequency: 0, Temperature: model.TierHot},
	}))

	hot, err := s.LoadByTemperature(ctx, model.TierHot, 0)
	require.NoError(t, err)
	require.Len(t, hot, 1)
	assert.Equal(t, "hot1", hot[0].Name)
}

func TestStore_ExistsAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, model.Tool{Name: "t1"}))

	exists, err := s.Exists(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	tool, ok, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t1", tool.Name)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Validate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Initialize(context.Background()))
	assert.NoError(t, s.Validate(context.Background()))
}

func TestStore_CountAndIsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, s.Save(ctx, model.Tool{Name: "t1"}))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
