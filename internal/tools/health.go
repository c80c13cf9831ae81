package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"coachai/internal/gateway"
	"coachai/internal/metrics"
	"coachai/pkg/auth"
	"coachai/pkg/logger"
)

// GatewayClient is the gateway surface the health tools depend on.
type GatewayClient interface {
	ListTools(ctx context.Context, bearer string) ([]gateway.Tool, error)
	CallTool(ctx context.Context, bearer, name string, args map[string]interface{}) (*gateway.CallResult, error)
}

// NewListHealthTools creates the tool that enumerates the gateway catalog.
// Failures are reported inside the result so the model can recover.
func NewListHealthTools(gw GatewayClient) *FunctionTool {
	log := logger.Get().With("component", "tools", "tool", "list_health_tools")

	return New(
		"list_health_tools",
		"List the health data tools available through the health manager, with their parameters.",
		func(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
			bearer := auth.TokenFromContext(ctx)

			available, err := gw.ListTools(ctx, bearer)
			if err != nil {
				log.Warnf("Tool listing failed: %v", err)
				return map[string]interface{}{"error": err.Error()}, nil
			}

			return map[string]interface{}{"tools": formatToolCatalog(available)}, nil
		},
	)
}

// NewHealthManagerMCP creates the tool that proxies calls to gateway tools.
func NewHealthManagerMCP(gw GatewayClient) *FunctionTool {
	log := logger.Get().With("component", "tools", "tool", "health_manager_mcp")

	return New(
		"health_manager_mcp",
		"Call a health manager tool by name with JSON arguments and return its result.",
		func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			name, _ := args["tool_name"].(string)
			if name == "" {
				return map[string]interface{}{"error": "tool_name is required"}, nil
			}

			toolArgs, _ := args["arguments"].(map[string]interface{})
			bearer := auth.TokenFromContext(ctx)

			start := time.Now()
			result, err := gw.CallTool(ctx, bearer, name, toolArgs)
			metrics.RecordToolExecution(name, time.Since(start), err)
			if err != nil {
				log.Warnf("Tool call %s failed: %v", name, err)
				return map[string]interface{}{"error": err.Error()}, nil
			}

			text := firstTextBlock(result)
			if result.IsError {
				return map[string]interface{}{"error": text}, nil
			}
			return map[string]interface{}{"result": text}, nil
		},
	)
}

// formatToolCatalog renders the catalog as text with required markers.
func formatToolCatalog(available []gateway.Tool) string {
	if len(available) == 0 {
		return "No health tools are currently available."
	}

	var b strings.Builder
	b.WriteString("Available health tools:\n")
	for _, t := range available {
		b.WriteString(fmt.Sprintf("\n- %s: %s\n", t.Name, t.Description))

		properties, _ := t.InputSchema["properties"].(map[string]interface{})
		if len(properties) == 0 {
			continue
		}

		required := map[string]bool{}
		if reqList, ok := t.InputSchema["required"].([]interface{}); ok {
			for _, name := range reqList {
				if s, ok := name.(string); ok {
					required[s] = true
				}
			}
		}

		names := make([]string, 0, len(properties))
		for name := range properties {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("  Parameters:\n")
		for _, name := range names {
			propType := "any"
			propDesc := ""
			if prop, ok := properties[name].(map[string]interface{}); ok {
				if s, ok := prop["type"].(string); ok {
					propType = s
				}
				if s, ok := prop["description"].(string); ok {
					propDesc = s
				}
			}

			marker := ""
			if required[name] {
				marker = ", required"
			}
			line := fmt.Sprintf("    - %s (%s%s)", name, propType, marker)
			if propDesc != "" {
				line += ": " + propDesc
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

// firstTextBlock extracts the first text content entry of a call result.
func firstTextBlock(result *gateway.CallResult) string {
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}
