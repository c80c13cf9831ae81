// Package tools exposes the gateway tool surface to the coaching agent.
package tools

import (
	"context"

	"google.golang.org/adk/tool"

	"coachai/pkg/errors"
)

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)

// FunctionTool is a simple tool implementation backed by a handler function.
// It satisfies the ADK tool interface.
type FunctionTool struct {
	name        string
	description string
	handler     HandlerFunc
}

// New creates a new function-backed tool.
func New(name, description string, handler HandlerFunc) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		handler:     handler,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// IsLongRunning reports whether the tool runs beyond a single turn. Gateway
// calls complete synchronously within the turn.
func (t *FunctionTool) IsLongRunning() bool { return false }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	if t.handler == nil {
		return nil, errors.Wrap(errors.ErrNotImplemented, "tool handler is not defined")
	}

	return t.handler(ctx, args)
}

var _ tool.Tool = (*FunctionTool)(nil)
