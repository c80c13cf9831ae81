package ai

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// ConverseAPI is the subset of the Bedrock runtime client used for chat.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Ensure BedrockProvider implements ChatProvider
var _ ChatProvider = (*BedrockProvider)(nil)

// BedrockProvider implements chat completion over the Bedrock Converse API.
type BedrockProvider struct {
	client ConverseAPI
}

// NewBedrockProvider creates a provider backed by a configured AWS client.
func NewBedrockProvider(cfg aws.Config) *BedrockProvider {
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}
}

// NewBedrockProviderWithClient creates a provider with an explicit client.
func NewBedrockProviderWithClient(client ConverseAPI) *BedrockProvider {
	return &BedrockProvider{client: client}
}

// Name returns provider name.
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// SupportsStreaming indicates streaming support.
func (p *BedrockProvider) SupportsStreaming() bool { return true }

// SupportsTools indicates tool calling support.
func (p *BedrockProvider) SupportsTools() bool { return true }
