package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachai/internal/gateway"
	"coachai/pkg/auth"
	"coachai/pkg/errors"
)

type fakeGateway struct {
	tools      []gateway.Tool
	listErr    error
	callResult *gateway.CallResult
	callErr    error

	lastBearer string
	lastName   string
	lastArgs   map[string]interface{}
}

func (f *fakeGateway) ListTools(_ context.Context, bearer string) ([]gateway.Tool, error) {
	f.lastBearer = bearer
	return f.tools, f.listErr
}

func (f *fakeGateway) CallTool(_ context.Context, bearer, name string, args map[string]interface{}) (*gateway.CallResult, error) {
	f.lastBearer = bearer
	f.lastName = name
	f.lastArgs = args
	return f.callResult, f.callErr
}

func TestListHealthTools_FormatsCatalog(t *testing.T) {
	gw := &fakeGateway{
		tools: []gateway.Tool{{
			Name:        "get_sleep_summary",
			Description: "Summarize recent sleep",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"days":     map[string]interface{}{"type": "integer", "description": "Days to include"},
					"timezone": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"days"},
			},
		}},
	}
	tool := NewListHealthTools(gw)

	ctx := auth.ContextWithToken(context.Background(), "token-1")
	result, err := tool.Execute(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, "token-1", gw.lastBearer)

	catalog, ok := result["tools"].(string)
	require.True(t, ok)
	assert.Contains(t, catalog, "get_sleep_summary: Summarize recent sleep")
	assert.Contains(t, catalog, "days (integer, required): Days to include")
	assert.Contains(t, catalog, "timezone (string)")
	assert.NotContains(t, catalog, "timezone (string, required)")
}

func TestListHealthTools_EmptyCatalog(t *testing.T) {
	tool := NewListHealthTools(&fakeGateway{})

	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No health tools are currently available.", result["tools"])
}

func TestListHealthTools_ErrorReportedAsString(t *testing.T) {
	gw := &fakeGateway{listErr: errors.Wrap(errors.ErrGatewayAuth, "gateway rejected token")}
	tool := NewListHealthTools(gw)

	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, result["error"], "gateway rejected token")
}

func TestHealthManagerMCP_ForwardsCall(t *testing.T) {
	gw := &fakeGateway{
		callResult: &gateway.CallResult{
			Content: []gateway.ContentBlock{
				{Type: "image"},
				{Type: "text", Text: `{"avg_hours":6.5}`},
			},
		},
	}
	tool := NewHealthManagerMCP(gw)

	ctx := auth.ContextWithToken(context.Background(), "token-1")
	result, err := tool.Execute(ctx, map[string]interface{}{
		"tool_name": "get_sleep_summary",
		"arguments": map[string]interface{}{"days": 7},
	})
	require.NoError(t, err)

	assert.Equal(t, "token-1", gw.lastBearer)
	assert.Equal(t, "get_sleep_summary", gw.lastName)
	assert.EqualValues(t, 7, gw.lastArgs["days"])
	assert.Equal(t, `{"avg_hours":6.5}`, result["result"])
}

func TestHealthManagerMCP_MissingName(t *testing.T) {
	tool := NewHealthManagerMCP(&fakeGateway{})

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "tool_name is required", result["error"])
}

func TestHealthManagerMCP_ToolErrorReportedAsString(t *testing.T) {
	gw := &fakeGateway{
		callResult: &gateway.CallResult{
			Content: []gateway.ContentBlock{{Type: "text", Text: "unknown metric"}},
			IsError: true,
		},
	}
	tool := NewHealthManagerMCP(gw)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"tool_name": "get_sleep_summary"})
	require.NoError(t, err)
	assert.Equal(t, "unknown metric", result["error"])
}

func TestHealthManagerMCP_TransportErrorReportedAsString(t *testing.T) {
	gw := &fakeGateway{callErr: errors.Wrap(errors.ErrUnavailable, "gateway request failed")}
	tool := NewHealthManagerMCP(gw)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"tool_name": "get_sleep_summary"})
	require.NoError(t, err)
	assert.Contains(t, result["error"], "gateway request failed")
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewListHealthTools(&fakeGateway{}))
	reg.Register(NewHealthManagerMCP(&fakeGateway{}))

	assert.ElementsMatch(t, []string{"list_health_tools", "health_manager_mcp"}, reg.List())

	got, ok := reg.Get("list_health_tools")
	require.True(t, ok)
	assert.Equal(t, "list_health_tools", got.Name())
	assert.Len(t, reg.All(), 2)
}
