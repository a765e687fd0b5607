package mcp

import (
	"context"
	"encoding/json"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
)

// handle dispatches one already-parsed Request to its method handler
// and returns either a Response or an ErrorResponse. Returns nil for a
// notification, which carries no response at all.
func handle(ctx context.Context, st *store.Store, userID string, req Request) any {
	switch req.Method {
	case "initialize":
		return handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "ping":
		return NewResult(req.ID, map[string]any{})
	case "tools/list":
		return handleToolsList(req)
	case "tools/call":
		return handleToolsCall(ctx, st, userID, req)
	default:
		return NewError(req.ID, apperr.RPCMethodNotFound, "method not found: "+req.Method)
	}
}

func handleInitialize(req Request) Response {
	return NewResult(req.ID, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
	})
}

func handleToolsList(req Request) Response {
	return NewResult(req.ID, map[string]any{"tools": allToolDefs()})
}

// toolsCallParams is the shape of tools/call's params member.
type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func handleToolsCall(ctx context.Context, st *store.Store, userID string, req Request) any {
	var params toolsCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, apperr.RPCInvalidParams, "malformed params")
		}
	}
	if params.Name == "" {
		return NewError(req.ID, apperr.RPCInvalidParams, "missing 'name' in params")
	}

	result, err := dispatchTool(ctx, st, userID, params.Name, params.Arguments)
	if err != nil {
		code := apperr.MCPCode(apperr.KindOf(err))
		return NewError(req.ID, code, err.Error())
	}

	text, err := json.Marshal(result)
	if err != nil {
		return NewError(req.ID, apperr.RPCApplicationErr, "failed to encode tool result")
	}

	return NewResult(req.ID, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(text)},
		},
	})
}
