// Package memory persists conversation turns in AgentCore memory so that
// coaching sessions survive process restarts.
package memory

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	actypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcore/types"

	"coachai/pkg/errors"
)

// API is the subset of the AgentCore data-plane client used for memory.
type API interface {
	CreateEvent(ctx context.Context, params *bedrockagentcore.CreateEventInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.CreateEventOutput, error)
	ListEvents(ctx context.Context, params *bedrockagentcore.ListEventsInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.ListEventsOutput, error)
}

// Turn is a single conversational turn stored in memory.
type Turn struct {
	Role      string // "user" or "assistant"
	Text      string
	Timestamp time.Time
}

// Client stores and loads conversation turns for (actor, session) pairs.
type Client struct {
	api      API
	memoryID string
}

// New creates a memory client against a configured AWS client.
func New(cfg aws.Config, memoryID string) *Client {
	return &Client{api: bedrockagentcore.NewFromConfig(cfg), memoryID: memoryID}
}

// NewWithAPI creates a memory client with an explicit API implementation.
func NewWithAPI(api API, memoryID string) *Client {
	return &Client{api: api, memoryID: memoryID}
}

// AppendTurns records conversation turns as a single memory event.
func (c *Client) AppendTurns(ctx context.Context, actorID, sessionID string, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}

	payload := make([]actypes.PayloadType, 0, len(turns))
	ts := turns[0].Timestamp
	for _, turn := range turns {
		if turn.Text == "" {
			continue
		}
		payload = append(payload, &actypes.PayloadTypeMemberConversational{
			Value: actypes.Conversational{
				Role:    convertRole(turn.Role),
				Content: &actypes.ContentMemberText{Value: turn.Text},
			},
		})
	}
	if len(payload) == 0 {
		return nil
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := c.api.CreateEvent(ctx, &bedrockagentcore.CreateEventInput{
		MemoryId:       aws.String(c.memoryID),
		ActorId:        aws.String(actorID),
		SessionId:      aws.String(sessionID),
		EventTimestamp: aws.Time(ts),
		Payload:        payload,
	})
	if err != nil {
		return errors.Wrapf(errors.ErrMemoryUnavailable, "append turns for session %s: %v", sessionID, err)
	}
	return nil
}

// ListTurns loads the stored turns for a session, oldest first.
func (c *Client) ListTurns(ctx context.Context, actorID, sessionID string) ([]Turn, error) {
	var turns []Turn
	var nextToken *string

	for {
		out, err := c.api.ListEvents(ctx, &bedrockagentcore.ListEventsInput{
			MemoryId:  aws.String(c.memoryID),
			ActorId:   aws.String(actorID),
			SessionId: aws.String(sessionID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrMemoryUnavailable, "list turns for session %s: %v", sessionID, err)
		}

		for _, event := range out.Events {
			ts := aws.ToTime(event.EventTimestamp)
			for _, payload := range event.Payload {
				conv, ok := payload.(*actypes.PayloadTypeMemberConversational)
				if !ok {
					continue
				}
				text, ok := conv.Value.Content.(*actypes.ContentMemberText)
				if !ok {
					continue
				}
				turns = append(turns, Turn{
					Role:      normalizeRole(conv.Value.Role),
					Text:      text.Value,
					Timestamp: ts,
				})
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return turns, nil
}

func convertRole(role string) actypes.Role {
	switch role {
	case "assistant":
		return actypes.RoleAssistant
	default:
		return actypes.RoleUser
	}
}

func normalizeRole(role actypes.Role) string {
	if role == actypes.RoleAssistant {
		return "assistant"
	}
	return "user"
}
