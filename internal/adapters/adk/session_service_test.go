package adk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"coachai/internal/adapters/memory"
	"coachai/pkg/errors"
)

type fakeTurnStore struct {
	turns     map[string][]memory.Turn // actorID/sessionID -> turns
	appendErr error
	listErr   error
}

func newFakeTurnStore() *fakeTurnStore {
	return &fakeTurnStore{turns: make(map[string][]memory.Turn)}
}

func (f *fakeTurnStore) key(actorID, sessionID string) string {
	return actorID + "/" + sessionID
}

func (f *fakeTurnStore) AppendTurns(_ context.Context, actorID, sessionID string, turns []memory.Turn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	k := f.key(actorID, sessionID)
	f.turns[k] = append(f.turns[k], turns...)
	return nil
}

func (f *fakeTurnStore) ListTurns(_ context.Context, actorID, sessionID string) ([]memory.Turn, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.turns[f.key(actorID, sessionID)], nil
}

func textEvent(author, text string) *session.Event {
	role := "model"
	if author == "user" {
		role = "user"
	}
	event := &session.Event{Author: author, Timestamp: time.Now().UTC()}
	event.LLMResponse.Content = &genai.Content{
		Role:  role,
		Parts: []*genai.Part{{Text: text}},
	}
	return event
}

func TestMemorySessionService_CreateRequiresAppAndUser(t *testing.T) {
	svc := NewMemorySessionService(newFakeTurnStore())

	_, err := svc.Create(context.Background(), &session.CreateRequest{AppName: "coach"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestMemorySessionService_CreateGeneratesID(t *testing.T) {
	svc := NewMemorySessionService(newFakeTurnStore())

	resp, err := svc.Create(context.Background(), &session.CreateRequest{
		AppName: "coach",
		UserID:  "user-42",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Session.ID())
	assert.Equal(t, "coach", resp.Session.AppName())
	assert.Equal(t, "user-42", resp.Session.UserID())
}

func TestMemorySessionService_AppendAndGetRoundTrip(t *testing.T) {
	store := newFakeTurnStore()
	svc := NewMemorySessionService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &session.CreateRequest{
		AppName:   "coach",
		UserID:    "user-42",
		SessionID: "healthmate-chat-roundtrip",
	})
	require.NoError(t, err)

	require.NoError(t, svc.AppendEvent(ctx, created.Session, textEvent("user", "How did I sleep?")))
	require.NoError(t, svc.AppendEvent(ctx, created.Session, textEvent("assistant", "You averaged 6.5 hours.")))

	got, err := svc.Get(ctx, &session.GetRequest{
		AppName:   "coach",
		UserID:    "user-42",
		SessionID: "healthmate-chat-roundtrip",
	})
	require.NoError(t, err)

	events := got.Session.Events()
	require.Equal(t, 2, events.Len())
	assert.Equal(t, "user", events.At(0).Author)
	assert.Equal(t, "How did I sleep?", events.At(0).LLMResponse.Content.Parts[0].Text)
	assert.Equal(t, "assistant", events.At(1).Author)
}

func TestMemorySessionService_AppendSkipsPartialEvents(t *testing.T) {
	store := newFakeTurnStore()
	svc := NewMemorySessionService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &session.CreateRequest{
		AppName:   "coach",
		UserID:    "user-42",
		SessionID: "healthmate-chat-partial",
	})
	require.NoError(t, err)

	partial := textEvent("assistant", "You aver")
	partial.LLMResponse.Partial = true
	require.NoError(t, svc.AppendEvent(ctx, created.Session, partial))

	assert.Empty(t, store.turns)
}

func TestMemorySessionService_GetLimitsRecentEvents(t *testing.T) {
	store := newFakeTurnStore()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		store.turns["user-42/s"] = append(store.turns["user-42/s"], memory.Turn{
			Role:      "user",
			Text:      text,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := NewMemorySessionService(store)

	got, err := svc.Get(context.Background(), &session.GetRequest{
		AppName:         "coach",
		UserID:          "user-42",
		SessionID:       "s",
		NumRecentEvents: 2,
	})
	require.NoError(t, err)

	events := got.Session.Events()
	require.Equal(t, 2, events.Len())
	assert.Equal(t, "two", events.At(0).LLMResponse.Content.Parts[0].Text)
	assert.Equal(t, "three", events.At(1).LLMResponse.Content.Parts[0].Text)
}

func TestMemorySessionService_GetPropagatesStoreFailure(t *testing.T) {
	store := newFakeTurnStore()
	store.listErr = errors.Wrap(errors.ErrMemoryUnavailable, "down")
	svc := NewMemorySessionService(store)

	_, err := svc.Get(context.Background(), &session.GetRequest{
		AppName:   "coach",
		UserID:    "user-42",
		SessionID: "s",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMemoryUnavailable)
}

func TestMemorySessionService_AppendSwallowsStoreFailure(t *testing.T) {
	store := newFakeTurnStore()
	store.appendErr = errors.Wrap(errors.ErrMemoryUnavailable, "write denied")
	svc := NewMemorySessionService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &session.CreateRequest{
		AppName:   "coach",
		UserID:    "user-42",
		SessionID: "healthmate-chat-writefail",
	})
	require.NoError(t, err)

	// A write failure loses history but must not abort the turn in flight.
	require.NoError(t, svc.AppendEvent(ctx, created.Session, textEvent("user", "How did I sleep?")))
	assert.Empty(t, store.turns)
}

func TestMemorySessionService_ListAndDelete(t *testing.T) {
	svc := NewMemorySessionService(newFakeTurnStore())
	ctx := context.Background()

	for _, id := range []string{"s-1", "s-2"} {
		_, err := svc.Create(ctx, &session.CreateRequest{AppName: "coach", UserID: "user-42", SessionID: id})
		require.NoError(t, err)
	}

	listed, err := svc.List(ctx, &session.ListRequest{AppName: "coach", UserID: "user-42"})
	require.NoError(t, err)
	require.Len(t, listed.Sessions, 2)

	require.NoError(t, svc.Delete(ctx, &session.DeleteRequest{AppName: "coach", UserID: "user-42", SessionID: "s-1"}))

	listed, err = svc.List(ctx, &session.ListRequest{AppName: "coach", UserID: "user-42"})
	require.NoError(t, err)
	require.Len(t, listed.Sessions, 1)
	assert.Equal(t, "s-2", listed.Sessions[0].ID())
}
