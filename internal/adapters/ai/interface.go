package ai

// Provider defines the contract each AI provider implementation must satisfy.
type Provider interface {
	Name() string

	// SupportsStreaming indicates whether the provider can stream responses.
	SupportsStreaming() bool

	// SupportsTools indicates whether the provider supports tool/function calling.
	SupportsTools() bool
}
