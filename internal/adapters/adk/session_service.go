package adk

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"coachai/internal/adapters/memory"
	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

// TurnStore persists conversation turns keyed by (actor, session).
// Satisfied by *memory.Client.
type TurnStore interface {
	AppendTurns(ctx context.Context, actorID, sessionID string, turns []memory.Turn) error
	ListTurns(ctx context.Context, actorID, sessionID string) ([]memory.Turn, error)
}

// MemorySessionService implements ADK's session.Service on top of AgentCore
// memory. Conversation history is loaded from stored turns; state is kept
// in-process only.
type MemorySessionService struct {
	store TurnStore
	log   *logger.Logger

	mu   sync.RWMutex
	seen map[string][]string // appName/userID -> session IDs
}

// NewMemorySessionService creates a memory-backed ADK session service.
func NewMemorySessionService(store TurnStore) *MemorySessionService {
	return &MemorySessionService{
		store: store,
		log:   logger.Get().With("component", "memory_session_service"),
		seen:  make(map[string][]string),
	}
}

// Create registers a session. The backing memory resource creates the session
// lazily on the first appended event.
func (s *MemorySessionService) Create(ctx context.Context, req *session.CreateRequest) (*session.CreateResponse, error) {
	if req == nil || req.AppName == "" || req.UserID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "app_name and user_id are required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state := req.State
	if state == nil {
		state = make(map[string]interface{})
	}

	s.register(req.AppName, req.UserID, sessionID)

	return &session.CreateResponse{
		Session: &adkSession{
			appName:      req.AppName,
			userID:       req.UserID,
			sessionID:    sessionID,
			state:        state,
			lastUpdateAt: time.Now().UTC(),
		},
	}, nil
}

// Get loads a session with its stored conversation turns.
func (s *MemorySessionService) Get(ctx context.Context, req *session.GetRequest) (*session.GetResponse, error) {
	if req == nil || req.AppName == "" || req.UserID == "" || req.SessionID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "app_name, user_id, and session_id are required")
	}

	turns, err := s.store.ListTurns(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	events := turnsToEvents(turns)
	if !req.After.IsZero() {
		events = filterEventsAfter(events, req.After)
	}
	if req.NumRecentEvents > 0 && len(events) > req.NumRecentEvents {
		events = events[len(events)-req.NumRecentEvents:]
	}

	lastUpdate := time.Now().UTC()
	if len(turns) > 0 {
		lastUpdate = turns[len(turns)-1].Timestamp
	}

	s.register(req.AppName, req.UserID, req.SessionID)

	return &session.GetResponse{
		Session: &adkSession{
			appName:      req.AppName,
			userID:       req.UserID,
			sessionID:    req.SessionID,
			state:        make(map[string]interface{}),
			events:       events,
			lastUpdateAt: lastUpdate,
		},
	}, nil
}

// List lists the sessions this process has seen for a user.
func (s *MemorySessionService) List(ctx context.Context, req *session.ListRequest) (*session.ListResponse, error) {
	if req == nil || req.AppName == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "app_name is required")
	}

	s.mu.RLock()
	ids := append([]string(nil), s.seen[registryKey(req.AppName, req.UserID)]...)
	s.mu.RUnlock()

	sessions := make([]session.Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, &adkSession{
			appName:   req.AppName,
			userID:    req.UserID,
			sessionID: id,
			state:     make(map[string]interface{}),
		})
	}

	return &session.ListResponse{Sessions: sessions}, nil
}

// Delete removes a session from the local registry. Stored turns are retained
// in the memory resource until its own expiry policy removes them.
func (s *MemorySessionService) Delete(ctx context.Context, req *session.DeleteRequest) error {
	if req == nil || req.AppName == "" || req.UserID == "" || req.SessionID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "app_name, user_id, and session_id are required")
	}

	key := registryKey(req.AppName, req.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.seen[key]
	for i, id := range ids {
		if id == req.SessionID {
			s.seen[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// AppendEvent persists a completed event as a conversation turn. Partial
// streaming events are skipped; only finished turns reach memory. Persistence
// is best-effort: a store failure loses the turn from history but must not
// abort the conversation, so it is logged and swallowed.
func (s *MemorySessionService) AppendEvent(ctx context.Context, sess session.Session, event *session.Event) error {
	if sess == nil || event == nil {
		return errors.Wrap(errors.ErrInvalidInput, "session and event are required")
	}
	if event.LLMResponse.Partial {
		return nil
	}

	text := eventText(event)
	if text == "" {
		return nil
	}

	role := "assistant"
	if event.Author == "user" {
		role = "user"
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	err := s.store.AppendTurns(ctx, sess.UserID(), sess.ID(), []memory.Turn{{
		Role:      role,
		Text:      text,
		Timestamp: ts,
	}})
	if err != nil {
		s.log.Warnf("Failed to persist turn for session %s, continuing without it: %v", sess.ID(), err)
	}
	return nil
}

func (s *MemorySessionService) register(appName, userID, sessionID string) {
	key := registryKey(appName, userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.seen[key] {
		if id == sessionID {
			return
		}
	}
	s.seen[key] = append(s.seen[key], sessionID)
}

func registryKey(appName, userID string) string {
	return appName + "/" + userID
}

// turnsToEvents converts stored turns to ADK events, oldest first.
func turnsToEvents(turns []memory.Turn) []*session.Event {
	events := make([]*session.Event, 0, len(turns))
	for _, turn := range turns {
		role := "model"
		author := "assistant"
		if turn.Role == "user" {
			role = "user"
			author = "user"
		}

		event := &session.Event{
			ID:        uuid.NewString(),
			Author:    author,
			Timestamp: turn.Timestamp,
		}
		event.LLMResponse.Content = &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		}
		event.LLMResponse.TurnComplete = true
		events = append(events, event)
	}
	return events
}

func filterEventsAfter(events []*session.Event, after time.Time) []*session.Event {
	filtered := events[:0]
	for _, event := range events {
		if event.Timestamp.After(after) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// eventText extracts the text parts of an event's content.
func eventText(event *session.Event) string {
	if event.LLMResponse.Content == nil {
		return ""
	}
	text := ""
	for _, part := range event.LLMResponse.Content.Parts {
		if part.Text == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += part.Text
	}
	return text
}

// adkSession implements the session.Session interface.
type adkSession struct {
	appName      string
	userID       string
	sessionID    string
	state        map[string]interface{}
	events       []*session.Event
	lastUpdateAt time.Time
}

func (s *adkSession) AppName() string {
	return s.appName
}

func (s *adkSession) UserID() string {
	return s.userID
}

func (s *adkSession) ID() string {
	return s.sessionID
}

func (s *adkSession) State() session.State {
	return &adkState{state: s.state}
}

func (s *adkSession) Events() session.Events {
	return &adkEvents{events: s.events}
}

func (s *adkSession) LastUpdateTime() time.Time {
	return s.lastUpdateAt
}

// adkState implements session.State
type adkState struct {
	state map[string]interface{}
}

func (s *adkState) Get(key string) (interface{}, error) {
	if val, ok := s.state[key]; ok {
		return val, nil
	}
	return nil, session.ErrStateKeyNotExist
}

func (s *adkState) Set(key string, val interface{}) error {
	s.state[key] = val
	return nil
}

func (s *adkState) All() iter.Seq2[string, interface{}] {
	return func(yield func(string, interface{}) bool) {
		for key, val := range s.state {
			if !yield(key, val) {
				return
			}
		}
	}
}

// adkEvents implements session.Events
type adkEvents struct {
	events []*session.Event
}

func (e *adkEvents) Len() int {
	return len(e.events)
}

func (e *adkEvents) At(i int) *session.Event {
	if i < 0 || i >= len(e.events) {
		return nil
	}
	return e.events[i]
}

func (e *adkEvents) All() iter.Seq[*session.Event] {
	return func(yield func(*session.Event) bool) {
		for _, event := range e.events {
			if !yield(event) {
				return
			}
		}
	}
}

// Ensure MemorySessionService implements session.Service
var _ session.Service = (*MemorySessionService)(nil)
