package ai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	lastInput *bedrockruntime.ConverseInput
	output    *bedrockruntime.ConverseOutput
	err       error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func (f *fakeConverseAPI) ConverseStream(_ context.Context, _ *bedrockruntime.ConverseStreamInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	return nil, f.err
}

func TestConvertToConverse_SeparatesSystemAndMaps(t *testing.T) {
	p := NewBedrockProviderWithClient(&fakeConverseAPI{})

	input, err := p.convertToConverse(ChatRequest{
		Model: "amazon.nova-pro-v1:0",
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a health coach."},
			{Role: RoleUser, Content: "How did I sleep?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{
				ID:   "tu-1",
				Type: "function",
				Function: FunctionCall{
					Name:      "get_sleep_summary",
					Arguments: `{"days":7}`,
				},
			}}},
			{Role: RoleTool, ToolCallID: "tu-1", Content: `{"avg_hours":6.5}`},
		},
		Tools: []ToolDefinition{{
			Type: "function",
			Function: FunctionDefinition{
				Name:        "get_sleep_summary",
				Description: "Summarize recent sleep",
				Parameters:  map[string]interface{}{"type": "object"},
			},
		}},
		Temperature: 0.4,
		MaxTokens:   1024,
	})
	require.NoError(t, err)

	assert.Equal(t, "amazon.nova-pro-v1:0", aws.ToString(input.ModelId))

	require.Len(t, input.System, 1)
	system, ok := input.System[0].(*brtypes.SystemContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "You are a health coach.", system.Value)

	require.Len(t, input.Messages, 3)
	assert.Equal(t, brtypes.ConversationRoleUser, input.Messages[0].Role)
	assert.Equal(t, brtypes.ConversationRoleAssistant, input.Messages[1].Role)

	toolUse, ok := input.Messages[1].Content[0].(*brtypes.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "tu-1", aws.ToString(toolUse.Value.ToolUseId))
	assert.Equal(t, "get_sleep_summary", aws.ToString(toolUse.Value.Name))

	// Tool results come back as user messages
	assert.Equal(t, brtypes.ConversationRoleUser, input.Messages[2].Role)
	toolResult, ok := input.Messages[2].Content[0].(*brtypes.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "tu-1", aws.ToString(toolResult.Value.ToolUseId))

	require.NotNil(t, input.ToolConfig)
	require.Len(t, input.ToolConfig.Tools, 1)

	require.NotNil(t, input.InferenceConfig)
	assert.Equal(t, int32(1024), aws.ToInt32(input.InferenceConfig.MaxTokens))
	assert.InDelta(t, 0.4, float64(aws.ToFloat32(input.InferenceConfig.Temperature)), 0.001)
}

func TestConvertToConverse_DefaultsMaxTokens(t *testing.T) {
	p := NewBedrockProviderWithClient(&fakeConverseAPI{})

	input, err := p.convertToConverse(ChatRequest{
		Model:    "amazon.nova-pro-v1:0",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(defaultMaxTokens), aws.ToInt32(input.InferenceConfig.MaxTokens))
	assert.Nil(t, input.InferenceConfig.Temperature)
	assert.Nil(t, input.ToolConfig)
}

func TestConvertToConverse_BadToolArguments(t *testing.T) {
	p := NewBedrockProviderWithClient(&fakeConverseAPI{})

	_, err := p.convertToConverse(ChatRequest{
		Model: "amazon.nova-pro-v1:0",
		Messages: []Message{{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID:       "tu-1",
			Function: FunctionCall{Name: "get_sleep_summary", Arguments: "{not json"},
		}}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get_sleep_summary")
}

func TestChat_ConvertsTextAndToolUse(t *testing.T) {
	api := &fakeConverseAPI{
		output: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{
				Value: brtypes.Message{
					Role: brtypes.ConversationRoleAssistant,
					Content: []brtypes.ContentBlock{
						&brtypes.ContentBlockMemberText{Value: "Checking your sleep data."},
						&brtypes.ContentBlockMemberToolUse{
							Value: brtypes.ToolUseBlock{
								ToolUseId: aws.String("tu-9"),
								Name:      aws.String("get_sleep_summary"),
								Input:     document.NewLazyDocument(map[string]interface{}{"days": 7}),
							},
						},
					},
				},
			},
			StopReason: brtypes.StopReasonToolUse,
			Usage: &brtypes.TokenUsage{
				InputTokens:  aws.Int32(120),
				OutputTokens: aws.Int32(30),
				TotalTokens:  aws.Int32(150),
			},
		},
	}
	p := NewBedrockProviderWithClient(api)

	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "amazon.nova-pro-v1:0",
		Messages: []Message{{Role: RoleUser, Content: "How did I sleep?"}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, FinishReasonToolCalls, choice.FinishReason)
	assert.Equal(t, "Checking your sleep data.", choice.Message.Content)

	require.Len(t, choice.Message.ToolCalls, 1)
	tc := choice.Message.ToolCalls[0]
	assert.Equal(t, "tu-9", tc.ID)
	assert.Equal(t, "get_sleep_summary", tc.Function.Name)

	var args map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tc.Function.Arguments), &args))
	assert.EqualValues(t, 7, args["days"])

	assert.Equal(t, 120, resp.Usage.PromptTokens)
	assert.Equal(t, 150, resp.Usage.TotalTokens)
}

func TestConvertStreamEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     brtypes.ConverseStreamOutput
		wantChunk bool
		check     func(t *testing.T, chunk ChatStreamChunk)
	}{
		{
			name:      "message start",
			event:     &brtypes.ConverseStreamOutputMemberMessageStart{Value: brtypes.MessageStartEvent{Role: brtypes.ConversationRoleAssistant}},
			wantChunk: true,
			check: func(t *testing.T, chunk ChatStreamChunk) {
				assert.Equal(t, RoleAssistant, chunk.Choices[0].Delta.Role)
			},
		},
		{
			name: "text delta",
			event: &brtypes.ConverseStreamOutputMemberContentBlockDelta{
				Value: brtypes.ContentBlockDeltaEvent{Delta: &brtypes.ContentBlockDeltaMemberText{Value: "Good morning"}},
			},
			wantChunk: true,
			check: func(t *testing.T, chunk ChatStreamChunk) {
				assert.Equal(t, "Good morning", chunk.Choices[0].Delta.Content)
			},
		},
		{
			name: "tool use start",
			event: &brtypes.ConverseStreamOutputMemberContentBlockStart{
				Value: brtypes.ContentBlockStartEvent{Start: &brtypes.ContentBlockStartMemberToolUse{
					Value: brtypes.ToolUseBlockStart{ToolUseId: aws.String("tu-1"), Name: aws.String("get_sleep_summary")},
				}},
			},
			wantChunk: true,
			check: func(t *testing.T, chunk ChatStreamChunk) {
				require.Len(t, chunk.Choices[0].Delta.ToolCalls, 1)
				assert.Equal(t, "tu-1", chunk.Choices[0].Delta.ToolCalls[0].ID)
				assert.Equal(t, "get_sleep_summary", chunk.Choices[0].Delta.ToolCalls[0].Function.Name)
			},
		},
		{
			name: "tool use arguments delta",
			event: &brtypes.ConverseStreamOutputMemberContentBlockDelta{
				Value: brtypes.ContentBlockDeltaEvent{Delta: &brtypes.ContentBlockDeltaMemberToolUse{
					Value: brtypes.ToolUseBlockDelta{Input: aws.String(`{"days":`)},
				}},
			},
			wantChunk: true,
			check: func(t *testing.T, chunk ChatStreamChunk) {
				assert.Equal(t, `{"days":`, chunk.Choices[0].Delta.ToolCalls[0].Function.Arguments)
			},
		},
		{
			name:      "message stop",
			event:     &brtypes.ConverseStreamOutputMemberMessageStop{Value: brtypes.MessageStopEvent{StopReason: brtypes.StopReasonEndTurn}},
			wantChunk: true,
			check: func(t *testing.T, chunk ChatStreamChunk) {
				assert.Equal(t, FinishReasonStop, chunk.Choices[0].FinishReason)
			},
		},
		{
			name: "metadata with usage",
			event: &brtypes.ConverseStreamOutputMemberMetadata{
				Value: brtypes.ConverseStreamMetadataEvent{Usage: &brtypes.TokenUsage{
					InputTokens:  aws.Int32(10),
					OutputTokens: aws.Int32(5),
					TotalTokens:  aws.Int32(15),
				}},
			},
			wantChunk: true,
			check: func(t *testing.T, chunk ChatStreamChunk) {
				require.NotNil(t, chunk.Usage)
				assert.Equal(t, 15, chunk.Usage.TotalTokens)
			},
		},
		{
			name: "content block stop is skipped",
			event: &brtypes.ConverseStreamOutputMemberContentBlockStop{
				Value: brtypes.ContentBlockStopEvent{ContentBlockIndex: aws.Int32(0)},
			},
			wantChunk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, ok := convertStreamEvent("amazon.nova-pro-v1:0", tt.event)
			assert.Equal(t, tt.wantChunk, ok)
			if tt.wantChunk {
				tt.check(t, chunk)
			}
		})
	}
}

func TestConvertStopReason(t *testing.T) {
	assert.Equal(t, FinishReasonStop, convertStopReason(brtypes.StopReasonEndTurn))
	assert.Equal(t, FinishReasonStop, convertStopReason(brtypes.StopReasonStopSequence))
	assert.Equal(t, FinishReasonLength, convertStopReason(brtypes.StopReasonMaxTokens))
	assert.Equal(t, FinishReasonToolCalls, convertStopReason(brtypes.StopReasonToolUse))
}
