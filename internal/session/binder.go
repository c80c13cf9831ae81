// Package session binds coaching conversations to persistent memory, falling
// back to process-local sessions when memory is unreachable.
package session

import (
	"context"
	"strings"

	"github.com/google/uuid"
	adksession "google.golang.org/adk/session"

	coachadk "coachai/internal/adapters/adk"
	"coachai/pkg/logger"
)

// Session ids shorter than this are rejected by the memory service, so the
// binder replaces them with synthesized ones.
const minSessionIDLength = 33

const sessionIDPrefix = "healthmate-chat-"

// Mode reports whether a binding is backed by persistent memory.
type Mode string

const (
	// ModeBound means conversation turns persist in AgentCore memory.
	ModeBound Mode = "bound"
	// ModeDegraded means turns live only in process memory.
	ModeDegraded Mode = "degraded"
)

// Binding is the result of binding a request to a session backend.
type Binding struct {
	Mode      Mode
	SessionID string
	Service   adksession.Service
	Reason    string // set when degraded
}

// Degraded reports whether the binding lost memory persistence.
func (b Binding) Degraded() bool {
	return b.Mode == ModeDegraded
}

// Binder produces session bindings for incoming requests.
type Binder struct {
	store coachadk.TurnStore
	log   *logger.Logger
}

// NewBinder creates a binder over a turn store. A nil store always degrades.
func NewBinder(store coachadk.TurnStore) *Binder {
	return &Binder{
		store: store,
		log:   logger.Get().With("component", "session_binder"),
	}
}

// Bind normalizes the session id and probes the memory backend. Memory
// failures never fail the request; the binding degrades instead.
func (b *Binder) Bind(ctx context.Context, userID, sessionID string) Binding {
	sessionID = EnsureSessionID(sessionID)

	if b.store == nil {
		return b.degrade(sessionID, "memory is not configured")
	}

	if _, err := b.store.ListTurns(ctx, userID, sessionID); err != nil {
		b.log.Warnf("Memory probe failed for session %s, continuing without persistence: %v",
			sessionID, err)
		return b.degrade(sessionID, err.Error())
	}

	return Binding{
		Mode:      ModeBound,
		SessionID: sessionID,
		Service:   coachadk.NewMemorySessionService(b.store),
	}
}

func (b *Binder) degrade(sessionID, reason string) Binding {
	return Binding{
		Mode:      ModeDegraded,
		SessionID: sessionID,
		Service:   adksession.InMemoryService(),
		Reason:    reason,
	}
}

// EnsureSessionID returns the given id when it satisfies the minimum length,
// otherwise a synthesized id that does.
func EnsureSessionID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= minSessionIDLength {
		return id
	}
	return sessionIDPrefix + uuid.NewString()
}
