package mcp

import (
	"context"
	"encoding/json"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
)

// ToolDef describes one MCP tool for the tools/list response.
type ToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

type toolFunc func(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error)

type registeredTool struct {
	def ToolDef
	fn  toolFunc
}

// registry and toolOrder are built once at init from each domain's tool
// list, mirroring the "per-domain tool_defs() plus one dispatch table"
// split.
var registry map[string]registeredTool
var toolOrder []string

func init() {
	all := []registeredTool{}
	all = append(all, calendarTools()...)
	all = append(all, eventTools()...)
	all = append(all, sharingTools()...)

	registry = make(map[string]registeredTool, len(all))
	toolOrder = make([]string, 0, len(all))
	for _, t := range all {
		registry[t.def.Name] = t
		toolOrder = append(toolOrder, t.def.Name)
	}
}

// allToolDefs returns every registered tool's definition, in
// registration order, for tools/list.
func allToolDefs() []ToolDef {
	defs := make([]ToolDef, 0, len(toolOrder))
	for _, name := range toolOrder {
		defs = append(defs, registry[name].def)
	}
	return defs
}

// dispatchTool looks up name in the registry and invokes it, returning
// an apperr.BadRequest error (mapped to -32602 Invalid Params,
// since an unknown tool name is a malformed tools/call argument) when
// no such tool is registered.
func dispatchTool(ctx context.Context, st *store.Store, userID, name string, args json.RawMessage) (any, error) {
	t, ok := registry[name]
	if !ok {
		return nil, apperr.BadRequestf("unknown tool %q", name)
	}
	return t.fn(ctx, st, userID, args)
}

// objectSchema is a convenience builder for the common
// {"type":"object","properties":{...},"required":[...]} shape every
// tool's inputSchema uses.
func objectSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integerProp(desc string, min, max int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": min, "maximum": max}
}

// unmarshalArgs decodes args into dst, reporting a BadRequest apperr
// (mapped to -32602) on malformed JSON rather than the raw decode
// error, since a tool argument is effectively an RPC parameter.
func unmarshalArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return apperr.BadRequestf("invalid tool arguments: %v", err)
	}
	return nil
}
