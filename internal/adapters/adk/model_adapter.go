package adk

import (
	"context"
	"encoding/json"
	"iter"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"coachai/internal/adapters/ai"
	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

// ModelAdapter adapts our AI ChatProvider to ADK's model.LLM interface.
type ModelAdapter struct {
	provider  ai.ChatProvider
	modelName string
	log       *logger.Logger
}

// NewModelAdapter creates a new ADK model adapter.
func NewModelAdapter(provider ai.ChatProvider, modelName string) *ModelAdapter {
	return &ModelAdapter{
		provider:  provider,
		modelName: modelName,
		log:       logger.Get().With("component", "model_adapter", "model", modelName),
	}
}

// Name returns the model name.
func (m *ModelAdapter) Name() string {
	return m.modelName
}

// GenerateContent implements the ADK model.LLM interface.
func (m *ModelAdapter) GenerateContent(
	ctx context.Context,
	req *model.LLMRequest,
	stream bool,
) iter.Seq2[*model.LLMResponse, error] {
	if stream {
		return m.generateStreaming(ctx, req)
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		chatReq := m.convertToChatRequest(req)

		m.log.Debugf("Calling LLM with %d messages and %d tools", len(chatReq.Messages), len(chatReq.Tools))

		resp, err := m.provider.Chat(ctx, chatReq)
		if err != nil {
			m.log.Errorf("LLM call failed: %v", err)
			yield(nil, errors.Wrap(err, "chat provider failed"))
			return
		}

		m.log.Debugf("LLM response received: %d choices, %d tokens", len(resp.Choices), resp.Usage.TotalTokens)

		yield(m.convertToADKResponse(resp), nil)
	}
}

// generateStreaming yields partial responses as text deltas arrive, then a
// final aggregated response with TurnComplete set.
func (m *ModelAdapter) generateStreaming(ctx context.Context, req *model.LLMRequest) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		chatReq := m.convertToChatRequest(req)
		chatReq.Stream = true

		m.log.Debugf("Calling LLM stream with %d messages and %d tools", len(chatReq.Messages), len(chatReq.Tools))

		chunks, errCh := m.provider.ChatStream(ctx, chatReq)

		var full strings.Builder
		var usage *genai.GenerateContentResponseUsageMetadata
		finishReason := genai.FinishReasonStop
		toolCalls := map[int]*ai.ToolCall{}
		toolOrder := []int{}

		for chunk := range chunks {
			if chunk.Usage != nil {
				usage = &genai.GenerateContentResponseUsageMetadata{
					PromptTokenCount:     int32(chunk.Usage.PromptTokens),
					CandidatesTokenCount: int32(chunk.Usage.CompletionTokens),
					TotalTokenCount:      int32(chunk.Usage.TotalTokens),
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.FinishReason == ai.FinishReasonLength {
				finishReason = genai.FinishReasonMaxTokens
			}

			for _, tc := range choice.Delta.ToolCalls {
				idx := len(toolOrder) - 1
				if tc.ID != "" {
					idx = len(toolOrder)
					toolOrder = append(toolOrder, idx)
					toolCalls[idx] = &ai.ToolCall{ID: tc.ID, Type: tc.Type, Function: ai.FunctionCall{Name: tc.Function.Name}}
					continue
				}
				if idx >= 0 {
					toolCalls[idx].Function.Arguments += tc.Function.Arguments
				}
			}

			if choice.Delta.Content == "" {
				continue
			}
			full.WriteString(choice.Delta.Content)

			partial := &model.LLMResponse{}
			partial.Content = &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: choice.Delta.Content}},
			}
			partial.Partial = true
			if !yield(partial, nil) {
				return
			}
		}

		if err := <-errCh; err != nil {
			m.log.Errorf("LLM stream failed: %v", err)
			yield(nil, errors.Wrap(err, "chat provider stream failed"))
			return
		}

		final := &model.LLMResponse{}
		content := &genai.Content{Role: "model", Parts: []*genai.Part{}}
		if full.Len() > 0 {
			content.Parts = append(content.Parts, &genai.Part{Text: full.String()})
		}
		for _, idx := range toolOrder {
			tc := toolCalls[idx]
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				m.log.Warnf("Failed to parse streamed tool call arguments for %s: %v", tc.Function.Name, err)
				continue
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{Name: tc.Function.Name, Args: args},
			})
		}
		final.Content = content
		final.FinishReason = finishReason
		final.UsageMetadata = usage
		final.TurnComplete = true
		yield(final, nil)
	}
}

// convertToChatRequest converts ADK request to our format.
func (m *ModelAdapter) convertToChatRequest(req *model.LLMRequest) ai.ChatRequest {
	chatReq := ai.ChatRequest{
		Model:       m.modelName,
		MaxTokens:   4096,
		Temperature: 0.7,
	}

	for _, content := range req.Contents {
		chatMsg := ai.Message{}

		switch content.Role {
		case "user":
			chatMsg.Role = ai.RoleUser
		case "model":
			chatMsg.Role = ai.RoleAssistant
		case "system":
			chatMsg.Role = ai.RoleSystem
		case "function", "tool":
			chatMsg.Role = ai.RoleTool
		default:
			chatMsg.Role = ai.RoleUser
		}

		for _, part := range content.Parts {
			if part.Text != "" {
				if chatMsg.Content != "" {
					chatMsg.Content += "\n"
				}
				chatMsg.Content += part.Text
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					continue
				}
				chatMsg.ToolCalls = append(chatMsg.ToolCalls, ai.ToolCall{
					ID:   part.FunctionCall.Name,
					Type: "function",
					Function: ai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})
			}
			if part.FunctionResponse != nil {
				chatMsg.Role = ai.RoleTool
				chatMsg.ToolCallID = part.FunctionResponse.Name
				if respData, err := json.Marshal(part.FunctionResponse.Response); err == nil {
					chatMsg.Content = string(respData)
				}
			}
		}

		chatReq.Messages = append(chatReq.Messages, chatMsg)
	}

	if req.Tools != nil {
		for toolName, toolData := range req.Tools {
			desc := ""
			params := map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
				"required":   []string{},
			}
			if meta, ok := toolData.(map[string]interface{}); ok {
				if d, ok := meta["description"].(string); ok {
					desc = d
				}
				if p, ok := meta["parameters"].(map[string]interface{}); ok {
					params = p
				}
			}

			chatReq.Tools = append(chatReq.Tools, ai.ToolDefinition{
				Type: "function",
				Function: ai.FunctionDefinition{
					Name:        toolName,
					Description: desc,
					Parameters:  params,
				},
			})
		}
	}

	return chatReq
}

// convertToADKResponse converts our response to ADK format.
func (m *ModelAdapter) convertToADKResponse(resp *ai.ChatResponse) *model.LLMResponse {
	adkResp := &model.LLMResponse{}

	if len(resp.Choices) == 0 {
		adkResp.FinishReason = genai.FinishReasonOther
		adkResp.ErrorMessage = "no choices in response"
		return adkResp
	}

	choice := resp.Choices[0]

	content := &genai.Content{
		Role:  "model",
		Parts: []*genai.Part{},
	}

	if choice.Message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{
			Text: choice.Message.Content,
		})
	}

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			m.log.Warnf("Failed to parse tool call arguments: %v", err)
			continue
		}

		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				Name: tc.Function.Name,
				Args: args,
			},
		})
	}

	adkResp.Content = content

	switch choice.FinishReason {
	case ai.FinishReasonLength:
		adkResp.FinishReason = genai.FinishReasonMaxTokens
	default:
		adkResp.FinishReason = genai.FinishReasonStop
	}

	adkResp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(resp.Usage.PromptTokens),
		CandidatesTokenCount: int32(resp.Usage.CompletionTokens),
		TotalTokenCount:      int32(resp.Usage.TotalTokens),
	}

	adkResp.TurnComplete = true

	return adkResp
}

// Ensure ModelAdapter implements model.LLM
var _ model.LLM = (*ModelAdapter)(nil)
