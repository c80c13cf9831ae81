package api

import (
	"context"
	"encoding/json"
	"net/http"

	"coachai/internal/coach"
	"coachai/pkg/auth"
	"coachai/pkg/logger"
)

// Streamer runs one coaching turn and streams its frames.
type Streamer interface {
	Stream(ctx context.Context, req coach.Request) <-chan coach.Frame
}

// InvocationHandler serves POST /invocations as a server-sent event stream.
type InvocationHandler struct {
	coach Streamer
	log   *logger.Logger
}

// NewInvocationHandler creates the invocation endpoint handler.
func NewInvocationHandler(streamer Streamer) *InvocationHandler {
	return &InvocationHandler{
		coach: streamer,
		log:   logger.Get().With("component", "invocations"),
	}
}

// invocationPayload is the caller-supplied request body. Timezone and
// language may arrive either inside session attributes or at the top level.
type invocationPayload struct {
	Prompt       string `json:"prompt"`
	Timezone     string `json:"timezone"`
	Language     string `json:"language"`
	SessionState struct {
		SessionAttributes struct {
			SessionID string `json:"session_id"`
			Timezone  string `json:"timezone"`
			Language  string `json:"language"`
		} `json:"sessionAttributes"`
	} `json:"sessionState"`
}

func (h *InvocationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload invocationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		h.streamSingleError(w, "Error: an Authorization header is required.")
		return
	}

	token := auth.FromAuthorizationHeader(authHeader)
	subject := auth.SubjectFromToken(token)

	attrs := payload.SessionState.SessionAttributes
	timezone := attrs.Timezone
	if timezone == "" {
		timezone = payload.Timezone
	}
	language := attrs.Language
	if language == "" {
		language = payload.Language
	}

	req := coach.Request{
		Prompt:    payload.Prompt,
		Subject:   subject,
		SessionID: attrs.SessionID,
		Timezone:  timezone,
		Language:  language,
		Token:     token,
	}

	h.log.Infof("Invocation received: subject=%s session=%s timezone=%s language=%s",
		subject, req.SessionID, timezone, language)

	h.streamFrames(w, r.Context(), h.coach.Stream(r.Context(), req))
}

// streamFrames writes coaching frames as server-sent events.
func (h *InvocationHandler) streamFrames(w http.ResponseWriter, ctx context.Context, frames <-chan coach.Frame) {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFrame(w, frame); err != nil {
				h.log.Warnf("Client disconnected mid-stream: %v", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *InvocationHandler) streamSingleError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	_ = writeFrame(w, coach.TextFrame(message))
}

func writeFrame(w http.ResponseWriter, frame coach.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
