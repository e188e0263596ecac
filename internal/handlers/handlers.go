// Package handlers translates MCP tool-invocation and resource-read calls
// into registry and searcher operations, validating inputs and gating by
// permission before touching the registry.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/maric-labs/registrytools/internal/auth"
	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registry"
	"github.com/maric-labs/registrytools/internal/registryerr"
)

const (
	maxQueryLength       = 1000
	maxDescriptionLength = 1000
	maxK                 = 100
	minK                 = 1
)

// Handlers exposes the MCP-facing operation set over a registry. Checker
// may be nil, in which case permission gating is a no-op.
type Handlers struct {
	Registry      *registry.Registry
	Checker       auth.Checker
	DefaultMethod model.SearchMethod
}

func (h *Handlers) checkAuth(ctx context.Context, required auth.Permission) error {
	if h.Checker == nil {
		return nil
	}
	return h.Checker.CheckAuth(ctx, required)
}

func validateQuery(query string) error {
	if len(query) > maxQueryLength {
		return fmt.Errorf("query exceeds %d characters: %w", maxQueryLength, registryerr.ErrValidation)
	}
	return nil
}

func validateK(k int) error {
	if k < minK || k > maxK {
		return fmt.Errorf("k must be between %d and %d, got %d: %w", minK, maxK, k, registryerr.ErrValidation)
	}
	return nil
}

func validateNonBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must not be empty: %w", field, registryerr.ErrValidation)
	}
	return nil
}

func validateMethod(raw string) (model.SearchMethod, error) {
	method, ok := model.ParseSearchMethod(raw)
	if !ok {
		return "", fmt.Errorf("unknown search method %q, must be one of regex, bm25, semantic: %w", raw, registryerr.ErrValidation)
	}
	return method, nil
}

func (h *Handlers) resolveMethod(raw string) (model.SearchMethod, error) {
	if raw == "" {
		return h.DefaultMethod, nil
	}
	return validateMethod(raw)
}

// SearchToolsInput is the input to SearchTools / SearchHotTools.
type SearchToolsInput struct {
	Query  string
	Method string
	K      int
}

// SearchTools implements the search_tools operation.
func (h *Handlers) SearchTools(ctx context.Context, in SearchToolsInput) ([]model.SearchResult, error) {
	if err := h.checkAuth(ctx, auth.PermissionRead); err != nil {
		return nil, err
	}
	if err := validateQuery(in.Query); err != nil {
		return nil, err
	}
	if err := validateK(in.K); err != nil {
		return nil, err
	}
	method, err := h.resolveMethod(in.Method)
	if err != nil {
		return nil, err
	}
	return h.Registry.Search(ctx, in.Query, method, in.K)
}

// SearchHotTools implements the search_hot_tools operation.
func (h *Handlers) SearchHotTools(ctx context.Context, in SearchToolsInput) ([]model.SearchResult, error) {
	if err := h.checkAuth(ctx, auth.PermissionRead); err != nil {
		return nil, err
	}
	if err := validateQuery(in.Query); err != nil {
		return nil, err
	}
	if err := validateK(in.K); err != nil {
		return nil, err
	}
	method, err := h.resolveMethod(in.Method)
	if err != nil {
		return nil, err
	}
	return h.Registry.SearchHotWarm(ctx, in.Query, method, in.K)
}

// GetToolDefinition implements the get_tool_definition operation.
func (h *Handlers) GetToolDefinition(ctx context.Context, name string) (model.Tool, error) {
	if err := h.checkAuth(ctx, auth.PermissionRead); err != nil {
		return model.Tool{}, err
	}
	if err := validateNonBlank("name", name); err != nil {
		return model.Tool{}, err
	}
	tool, ok := h.Registry.Get(name)
	if !ok {
		return model.Tool{}, fmt.Errorf("tool %q not found: %w", name, registryerr.ErrNotFound)
	}
	return tool, nil
}

// ListToolsByCategoryResult is the union return shape for
// list_tools_by_category: either a tool list (a specific category) or a
// category list (the literal "all").
type ListToolsByCategoryResult struct {
	Tools      []model.Tool
	Categories []string
}

// ListToolsByCategory implements the list_tools_by_category operation.
// category == "all" returns the category list instead of tools.
func (h *Handlers) ListToolsByCategory(ctx context.Context, category string, k int) (ListToolsByCategoryResult, error) {
	if err := h.checkAuth(ctx, auth.PermissionRead); err != nil {
		return ListToolsByCategoryResult{}, err
	}
	if err := validateNonBlank("category", category); err != nil {
		return ListToolsByCategoryResult{}, err
	}
	if err := validateK(k); err != nil {
		return ListToolsByCategoryResult{}, err
	}

	if category == "all" {
		return ListToolsByCategoryResult{Categories: h.Registry.ListCategories()}, nil
	}

	tools := h.Registry.List(category)
	if k > 0 && len(tools) > k {
		tools = tools[:k]
	}
	return ListToolsByCategoryResult{Tools: tools}, nil
}

// RegisterToolInput is the input to RegisterTool.
type RegisterToolInput struct {
	Name        string
	Description string
	Category    string
	Tags        []string
}

// RegisterTool implements the register_tool operation. It rejects
// registration when the name already exists — register_tool is strictly
// create, unlike the registry core's upsert-by-default Register.
func (h *Handlers) RegisterTool(ctx context.Context, in RegisterToolInput, persist func(model.Tool) error) (model.Tool, error) {
	if err := h.checkAuth(ctx, auth.PermissionWrite); err != nil {
		return model.Tool{}, err
	}
	if err := validateNonBlank("name", in.Name); err != nil {
		return model.Tool{}, err
	}
	if err := validateNonBlank("description", in.Description); err != nil {
		return model.Tool{}, err
	}
	if len(in.Description) > maxDescriptionLength {
		return model.Tool{}, fmt.Errorf("description exceeds %d characters: %w", maxDescriptionLength, registryerr.ErrValidation)
	}
	if in.Category != "" {
		if err := validateNonBlank("category", in.Category); err != nil {
			return model.Tool{}, err
		}
	}
	if _, exists := h.Registry.Get(in.Name); exists {
		return model.Tool{}, fmt.Errorf("tool %q already exists: %w", in.Name, registryerr.ErrConflict)
	}

	tool := model.Tool{
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		Tags:         append([]string(nil), in.Tags...),
		DeferLoading: true,
	}
	h.Registry.Register(tool)

	registered, _ := h.Registry.Get(in.Name)
	if persist != nil {
		if err := persist(registered); err != nil {
			return model.Tool{}, err
		}
	}
	return registered, nil
}

// UnregisterTool implements the unregister_tool operation.
func (h *Handlers) UnregisterTool(ctx context.Context, name string, persist func(string) error) (bool, error) {
	if err := h.checkAuth(ctx, auth.PermissionWrite); err != nil {
		return false, err
	}
	if err := validateNonBlank("name", name); err != nil {
		return false, err
	}
	removed := h.Registry.Unregister(name)
	if removed && persist != nil {
		if err := persist(name); err != nil {
			return false, err
		}
	}
	return removed, nil
}

// StatsResult is the get_stats resource shape.
type StatsResult struct {
	registry.UsageStats
	MostUsed []model.Tool `json:"most_used"`
}

// GetStats implements the get_stats resource.
func (h *Handlers) GetStats(ctx context.Context) (StatsResult, error) {
	if err := h.checkAuth(ctx, auth.PermissionRead); err != nil {
		return StatsResult{}, err
	}
	return StatsResult{
		UsageStats: h.Registry.UsageStats(),
		MostUsed:   h.Registry.GetMostUsed(10),
	}, nil
}

// GetCategories implements the get_categories resource.
func (h *Handlers) GetCategories(ctx context.Context) ([]string, error) {
	if err := h.checkAuth(ctx, auth.PermissionRead); err != nil {
		return nil, err
	}
	return h.Registry.ListCategories(), nil
}
