package ai

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"coachai/pkg/errors"
)

const defaultMaxTokens = 4096

// Chat sends a chat completion request through the Converse API.
func (p *BedrockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	input, err := p.convertToConverse(req)
	if err != nil {
		return nil, err
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "bedrock converse")
	}

	return p.convertFromConverse(req.Model, out)
}

// ChatStream sends a chat completion request through the ConverseStream API.
// Chunks mirror the provider events: text deltas carry content, tool-use
// events carry partial tool calls, and the final chunk carries usage.
func (p *BedrockProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan ChatStreamChunk, <-chan error) {
	chunks := make(chan ChatStreamChunk)
	errCh := make(chan error, 1)

	input, err := p.convertToConverse(req)
	if err != nil {
		errCh <- err
		close(errCh)
		close(chunks)
		return chunks, errCh
	}

	go func() {
		defer close(chunks)
		defer close(errCh)

		out, err := p.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
			ModelId:         input.ModelId,
			Messages:        input.Messages,
			System:          input.System,
			ToolConfig:      input.ToolConfig,
			InferenceConfig: input.InferenceConfig,
		})
		if err != nil {
			errCh <- errors.Wrap(err, "bedrock converse stream")
			return
		}

		stream := out.GetStream()
		defer func() { _ = stream.Close() }()

		for event := range stream.Events() {
			chunk, ok := convertStreamEvent(req.Model, event)
			if !ok {
				continue
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- errors.Wrap(err, "bedrock stream read")
		}
	}()

	return chunks, errCh
}

// convertToConverse converts our request format to the Converse API format.
func (p *BedrockProvider) convertToConverse(req ChatRequest) (*bedrockruntime.ConverseInput, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	inference := &brtypes.InferenceConfiguration{
		MaxTokens: aws.Int32(int32(maxTokens)),
	}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(float32(req.Temperature))
	}
	if req.TopP > 0 {
		inference.TopP = aws.Float32(float32(req.TopP))
	}
	input.InferenceConfig = inference

	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			input.System = append(input.System, &brtypes.SystemContentBlockMemberText{Value: msg.Content})
			continue
		}

		converted, err := convertMessage(msg)
		if err != nil {
			return nil, err
		}
		input.Messages = append(input.Messages, converted)
	}

	if len(req.Tools) > 0 {
		toolConfig := &brtypes.ToolConfiguration{}
		for _, tool := range req.Tools {
			toolConfig.Tools = append(toolConfig.Tools, &brtypes.ToolMemberToolSpec{
				Value: brtypes.ToolSpecification{
					Name:        aws.String(tool.Function.Name),
					Description: aws.String(tool.Function.Description),
					InputSchema: &brtypes.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(tool.Function.Parameters),
					},
				},
			})
		}
		input.ToolConfig = toolConfig
	}

	return input, nil
}

// convertMessage converts a single message to a Converse message.
func convertMessage(msg Message) (brtypes.Message, error) {
	switch {
	case msg.Role == RoleTool:
		// Tool results travel back as user messages
		return brtypes.Message{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(msg.ToolCallID),
						Content: []brtypes.ToolResultContentBlock{
							&brtypes.ToolResultContentBlockMemberText{Value: msg.Content},
						},
					},
				},
			},
		}, nil

	case len(msg.ToolCalls) > 0:
		var content []brtypes.ContentBlock
		if msg.Content != "" {
			content = append(content, &brtypes.ContentBlockMemberText{Value: msg.Content})
		}
		for _, tc := range msg.ToolCalls {
			var args map[string]interface{}
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					return brtypes.Message{}, errors.Wrapf(err, "decode tool call %s arguments", tc.Function.Name)
				}
			}
			content = append(content, &brtypes.ContentBlockMemberToolUse{
				Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Function.Name),
					Input:     document.NewLazyDocument(args),
				},
			})
		}
		return brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: content}, nil

	default:
		role := brtypes.ConversationRoleUser
		if msg.Role == RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		return brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: msg.Content}},
		}, nil
	}
}

// convertFromConverse converts a Converse response to our format.
func (p *BedrockProvider) convertFromConverse(model string, out *bedrockruntime.ConverseOutput) (*ChatResponse, error) {
	resp := &ChatResponse{Model: model}

	if out.Usage != nil {
		resp.Usage = Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	outMsg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, errors.Wrapf(errors.ErrExternal, "unexpected converse output type %T", out.Output)
	}

	msg := Message{Role: RoleAssistant}
	var textParts []string
	for _, block := range outMsg.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			textParts = append(textParts, b.Value)
		case *brtypes.ContentBlockMemberToolUse:
			args, err := b.Value.Input.MarshalSmithyDocument()
			if err != nil {
				return nil, errors.Wrap(err, "decode tool use input")
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   aws.ToString(b.Value.ToolUseId),
				Type: "function",
				Function: FunctionCall{
					Name:      aws.ToString(b.Value.Name),
					Arguments: string(args),
				},
			})
		}
	}
	msg.Content = joinTextParts(textParts)

	resp.Choices = []Choice{{
		Index:        0,
		Message:      msg,
		FinishReason: convertStopReason(out.StopReason),
	}}

	return resp, nil
}

// convertStreamEvent converts one ConverseStream event into a chunk.
// Events that carry no chunk payload report ok=false.
func convertStreamEvent(model string, event brtypes.ConverseStreamOutput) (ChatStreamChunk, bool) {
	chunk := ChatStreamChunk{Model: model}

	switch e := event.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		chunk.Choices = []StreamChoice{{Delta: MessageDelta{Role: RoleAssistant}}}
		return chunk, true

	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		start, ok := e.Value.Start.(*brtypes.ContentBlockStartMemberToolUse)
		if !ok {
			return chunk, false
		}
		chunk.Choices = []StreamChoice{{Delta: MessageDelta{ToolCalls: []ToolCall{{
			ID:       aws.ToString(start.Value.ToolUseId),
			Type:     "function",
			Function: FunctionCall{Name: aws.ToString(start.Value.Name)},
		}}}}}
		return chunk, true

	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		switch d := e.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			chunk.Choices = []StreamChoice{{Delta: MessageDelta{Content: d.Value}}}
			return chunk, true
		case *brtypes.ContentBlockDeltaMemberToolUse:
			chunk.Choices = []StreamChoice{{Delta: MessageDelta{ToolCalls: []ToolCall{{
				Type:     "function",
				Function: FunctionCall{Arguments: aws.ToString(d.Value.Input)},
			}}}}}
			return chunk, true
		}
		return chunk, false

	case *brtypes.ConverseStreamOutputMemberMessageStop:
		chunk.Choices = []StreamChoice{{FinishReason: convertStopReason(e.Value.StopReason)}}
		return chunk, true

	case *brtypes.ConverseStreamOutputMemberMetadata:
		if e.Value.Usage == nil {
			return chunk, false
		}
		chunk.Usage = &Usage{
			PromptTokens:     int(aws.ToInt32(e.Value.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(e.Value.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(e.Value.Usage.TotalTokens)),
		}
		return chunk, true
	}

	return chunk, false
}

// convertStopReason maps Converse stop reasons to our finish reasons.
func convertStopReason(reason brtypes.StopReason) FinishReason {
	switch reason {
	case brtypes.StopReasonEndTurn, brtypes.StopReasonStopSequence:
		return FinishReasonStop
	case brtypes.StopReasonMaxTokens:
		return FinishReasonLength
	case brtypes.StopReasonToolUse:
		return FinishReasonToolCalls
	default:
		return FinishReasonStop
	}
}

func joinTextParts(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	result := ""
	for i, part := range parts {
		if i > 0 {
			result += "\n"
		}
		result += part
	}
	return result
}
