// Package dispatch maps the MCP method-name table in spec §4.5 onto the
// handlers package, translating decoded transport.Request params into
// typed handler calls and any resulting error into a transport.Response.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maric-labs/registrytools/internal/handlers"
	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registryerr"
	"github.com/maric-labs/registrytools/internal/storage"
	"github.com/maric-labs/registrytools/internal/transport"
)

// Dispatcher binds a Handlers instance and a persistence hook to the MCP
// method table.
type Dispatcher struct {
	Handlers *handlers.Handlers
	Store    storage.Store
}

// Dispatch implements transport.Handler.
func (d *Dispatcher) Dispatch(ctx context.Context, req transport.Request) transport.Response {
	result, err := d.route(ctx, req)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return transport.NewResult(req.ID, result)
}

func (d *Dispatcher) route(ctx context.Context, req transport.Request) (any, error) {
	switch req.Method {
	case "search_tools":
		var p searchParams
		if err := decode(req.Params, &p); err != nil {
			return nil, err
		}
		return d.Handlers.SearchTools(ctx, handlers.SearchToolsInput{Query: p.Query, Method: p.Method, K: p.kOrDefault()})

	case "search_hot_tools":
		var p searchParams
		if err := decode(req.Params, &p); err != nil {
			return nil, err
		}
		return d.Handlers.SearchHotTools(ctx, handlers.SearchToolsInput{Query: p.Query, Method: p.Method, K: p.kOrDefault()})

	case "get_tool_definition":
		var p struct {
			Name string `json:"name"`
		}
		if err := decode(req.Params, &p); err != nil {
			return nil, err
		}
		return d.Handlers.GetToolDefinition(ctx, p.Name)

	case "list_tools_by_category":
		var p struct {
			Category string `json:"category"`
			K        int    `json:"k"`
		}
		if err := decode(req.Params, &p); err != nil {
			return nil, err
		}
		if p.K == 0 {
			p.K = 100
		}
		return d.Handlers.ListToolsByCategory(ctx, p.Category, p.K)

	case "register_tool":
		var p struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Category    string   `json:"category"`
			Tags        []string `json:"tags"`
		}
		if err := decode(req.Params, &p); err != nil {
			return nil, err
		}
		return d.Handlers.RegisterTool(ctx, handlers.RegisterToolInput{
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Tags:        p.Tags,
		}, func(tool model.Tool) error { return d.Store.Save(ctx, tool) })

	case "unregister_tool":
		var p struct {
			Name string `json:"name"`
		}
		if err := decode(req.Params, &p); err != nil {
			return nil, err
		}
		return d.Handlers.UnregisterTool(ctx, p.Name, func(name string) error {
			_, err := d.Store.Delete(ctx, name)
			return err
		})

	case "get_stats":
		return d.Handlers.GetStats(ctx)

	case "get_categories":
		return d.Handlers.GetCategories(ctx)

	default:
		return nil, fmt.Errorf("unknown method %q: %w", req.Method, registryerr.ErrValidation)
	}
}

type searchParams struct {
	Query  string `json:"query"`
	Method string `json:"method"`
	K      int    `json:"k"`
}

func (p searchParams) kOrDefault() int {
	if p.K == 0 {
		return 10
	}
	return p.K
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", errors.Join(registryerr.ErrValidation, err))
	}
	return nil
}

func errorResponse(id json.RawMessage, err error) transport.Response {
	kind := registryerr.Classify(err)
	return transport.NewError(id, string(kind), err.Error(), nil)
}
