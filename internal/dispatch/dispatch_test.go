package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/handlers"
	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registry"
	"github.com/maric-labs/registrytools/internal/registryerr"
	"github.com/maric-labs/registrytools/internal/search"
	"github.com/maric-labs/registrytools/internal/transport"
)

type memStore struct {
	tools map[string]model.Tool
}

func newMemStore() *memStore { return &memStore{tools: make(map[string]model.Tool)} }

func (m *memStore) LoadAll(context.Context) ([]model.Tool, error) {
	out := make([]model.Tool, 0, len(m.tools))
	for _, t := range m.tools {
		out = append(out, t)
	}
	return out, nil
}
func (m *memStore) Save(_ context.Context, t model.Tool) error { m.tools[t.Name] = t; return nil }
func (m *memStore) SaveMany(ctx context.Context, ts []model.Tool) error {
	for _, t := range ts {
		_ = m.Save(ctx, t)
	}
	return nil
}
func (m *memStore) Delete(_ context.Context, name string) (bool, error) {
	_, ok := m.tools[name]
	delete(m.tools, name)
	return ok, nil
}
func (m *memStore) Exists(_ context.Context, name string) (bool, error) {
	_, ok := m.tools[name]
	return ok, nil
}
func (m *memStore) LoadByTemperature(context.Context, model.Tier, int) ([]model.Tool, error) {
	return nil, nil
}
func (m *memStore) Count(context.Context) (int, error)   { return len(m.tools), nil }
func (m *memStore) IsEmpty(context.Context) (bool, error) { return len(m.tools) == 0, nil }
func (m *memStore) Get(_ context.Context, name string) (model.Tool, bool, error) {
	t, ok := m.tools[name]
	return t, ok, nil
}
func (m *memStore) Clear(context.Context) error { m.tools = make(map[string]model.Tool); return nil }
func (m *memStore) Initialize(context.Context) error { return nil }
func (m *memStore) Validate(context.Context) error   { return nil }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	reg := registry.New(model.DefaultThresholds(), zap.NewNop().Sugar())
	require.NoError(t, reg.RegisterSearcher(model.SearchMethodRegex, search.NewRegex(false)))
	reg.Register(model.Tool{Name: "github.create_pr", Description: "Create a pull request"})
	require.NoError(t, reg.RebuildIndexes())

	h := &handlers.Handlers{Registry: reg, DefaultMethod: model.SearchMethodRegex}
	return &Dispatcher{Handlers: h, Store: newMemStore()}
}

func mustParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDispatcher_SearchTools_Success(t *testing.T) {
	d := newTestDispatcher(t)
	req := transport.Request{
		ID:     json.RawMessage(`1`),
		Method: "search_tools",
		Params: mustParams(t, map[string]any{"query": "pull request", "k": 5}),
	}

	resp := d.Dispatch(context.Background(), req)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

func TestDispatcher_UnknownMethod_ReturnsValidationError(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), transport.Request{ID: json.RawMessage(`1`), Method: "bogus"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, string(registryerr.KindValidation), resp.Error.Code)
}

func TestDispatcher_MalformedParams_ReturnsValidationError(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), transport.Request{
		ID:     json.RawMessage(`1`),
		Method: "search_tools",
		Params: json.RawMessage(`{not json`),
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, string(registryerr.KindValidation), resp.Error.Code)
}

func TestDispatcher_GetToolDefinition_NotFound(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), transport.Request{
		ID:     json.RawMessage(`1`),
		Method: "get_tool_definition",
		Params: mustParams(t, map[string]any{"name": "missing"}),
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, string(registryerr.KindNotFound), resp.Error.Code)
}

func TestDispatcher_RegisterTool_PersistsToStore(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), transport.Request{
		ID:     json.RawMessage(`1`),
		Method: "register_tool",
		Params: mustParams(t, map[string]any{"name": "new.tool", "description": "a new tool"}),
	})

	require.Nil(t, resp.Error)
	store := d.Store.(*memStore)
	_, ok := store.tools["new.tool"]
	assert.True(t, ok)
}

func TestDispatcher_UnregisterTool_DeletesFromStore(t *testing.T) {
	d := newTestDispatcher(t)
	store := d.Store.(*memStore)
	store.tools["github.create_pr"] = model.Tool{Name: "github.create_pr"}

	resp := d.Dispatch(context.Background(), transport.Request{
		ID:     json.RawMessage(`1`),
		Method: "unregister_tool",
		Params: mustParams(t, map[string]any{"name": "github.create_pr"}),
	})

	require.Nil(t, resp.Error)
	_, ok := store.tools["github.create_pr"]
	assert.False(t, ok)
}

func TestDispatcher_GetStats(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), transport.Request{ID: json.RawMessage(`1`), Method: "get_stats"})
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

func TestDispatcher_GetCategories(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), transport.Request{ID: json.RawMessage(`1`), Method: "get_categories"})
	assert.Nil(t, resp.Error)
}
