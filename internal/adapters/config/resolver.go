package config

import (
	"context"
	"fmt"

	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

// OutputSource resolves a named output of a deployed infrastructure stack.
// The CloudFormation adapter implements it; tests substitute a fake.
type OutputSource interface {
	StackOutput(ctx context.Context, stackName, outputKey string) (string, error)
}

// Settings is the fully resolved runtime configuration. It is built once at
// startup and treated as immutable for the process lifetime; request handling
// never starts while any field is empty.
type Settings struct {
	GatewayID    string
	MemoryID     string
	ModelID      string
	ProviderName string
	Scope        string
	Region       string
}

// GatewayEndpoint derives the MCP endpoint URL from the gateway identifier.
func (s Settings) GatewayEndpoint() string {
	return fmt.Sprintf("https://%s.gateway.bedrock-agentcore.%s.amazonaws.com/mcp", s.GatewayID, s.Region)
}

// binding ties one required setting to its two sources.
type binding struct {
	name      string // for error messages
	envVar    string
	envValue  string
	stackName string
	outputKey string
	target    *string
}

// Resolve produces Settings from the layered sources: an explicit environment
// variable wins, then the named stack output, then a hard error naming the
// missing value and both sources checked. Every required field goes through
// the same two-step lookup independently so a partial configuration is never
// accepted silently.
func Resolve(ctx context.Context, cfg *Config, outputs OutputSource) (*Settings, error) {
	log := logger.Get().With("component", "config_resolver")

	settings := &Settings{
		Region: cfg.AWS.Region,
		Scope:  cfg.Agent.Scope,
	}

	bindings := []binding{
		{
			name:      "gateway identifier",
			envVar:    "HEALTHMANAGER_GATEWAY_ID",
			envValue:  cfg.Agent.GatewayID,
			stackName: cfg.Stacks.HealthStack,
			outputKey: "GatewayId",
			target:    &settings.GatewayID,
		},
		{
			name:      "memory resource identifier",
			envVar:    "BEDROCK_AGENTCORE_MEMORY_ID",
			envValue:  cfg.Agent.MemoryID,
			stackName: cfg.Stacks.AgentStack,
			outputKey: "MemoryId",
			target:    &settings.MemoryID,
		},
		{
			name:      "model identifier",
			envVar:    "HEALTHMATE_AI_MODEL",
			envValue:  cfg.Agent.ModelID,
			stackName: cfg.Stacks.AgentStack,
			outputKey: "AgentModelId",
			target:    &settings.ModelID,
		},
		{
			name:      "authentication provider name",
			envVar:    "AGENTCORE_PROVIDER_NAME",
			envValue:  cfg.Agent.ProviderName,
			stackName: cfg.Stacks.AgentStack,
			outputKey: "OAuthProviderName",
			target:    &settings.ProviderName,
		},
	}

	for _, b := range bindings {
		if b.envValue != "" {
			*b.target = b.envValue
			continue
		}

		val, err := outputs.StackOutput(ctx, b.stackName, b.outputKey)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrConfigMissing,
				"%s: env var %s is unset and stack %s output %s could not be read (%v)",
				b.name, b.envVar, b.stackName, b.outputKey, err)
		}

		log.Debugf("Resolved %s from stack %s output %s", b.name, b.stackName, b.outputKey)
		*b.target = val
	}

	return settings, nil
}
