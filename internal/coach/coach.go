// Package coach runs the health coaching agent and streams its responses.
package coach

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	coachadk "coachai/internal/adapters/adk"
	"coachai/internal/adapters/ai"
	"coachai/internal/metrics"
	"coachai/internal/session"
	"coachai/internal/tools"
	"coachai/pkg/auth"
	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

const agentName = "healthmate_coach"

var greetings = map[string]string{
	"ja": "こんにちは！健康に関してどのようなサポートが必要ですか？",
	"en": "Hello! How can I support your health today?",
}

// Request is one coaching turn.
type Request struct {
	Prompt    string
	Subject   string
	SessionID string
	Timezone  string
	Language  string
	Token     string
}

// runFunc executes one agent turn and yields its events.
type runFunc func(ctx context.Context, userID, sessionID string, msg *genai.Content) iter.Seq2[*adksession.Event, error]

// Coach binds sessions, assembles the agent, and streams coaching turns.
type Coach struct {
	appName  string
	modelID  string
	provider ai.ChatProvider
	binder   *session.Binder
	registry *tools.Registry
	log      *logger.Logger

	// replaced in tests
	newRun func(binding session.Binding, instruction string) (runFunc, error)
}

// Config holds coach construction parameters.
type Config struct {
	AppName  string
	ModelID  string
	Provider ai.ChatProvider
	Binder   *session.Binder
	Registry *tools.Registry
}

// New creates a coach.
func New(cfg Config) *Coach {
	appName := cfg.AppName
	if appName == "" {
		appName = agentName
	}

	c := &Coach{
		appName:  appName,
		modelID:  cfg.ModelID,
		provider: cfg.Provider,
		binder:   cfg.Binder,
		registry: cfg.Registry,
		log:      logger.Get().With("component", "coach", "model", cfg.ModelID),
	}
	c.newRun = c.newAgentRun
	return c
}

// Stream handles one coaching turn and returns its frame stream. The channel
// is closed when the turn finishes; errors surface as error frames.
func (c *Coach) Stream(ctx context.Context, req Request) <-chan Frame {
	frames := make(chan Frame, 16)
	go c.run(ctx, req, frames)
	return frames
}

func (c *Coach) run(ctx context.Context, req Request, frames chan<- Frame) {
	defer close(frames)
	start := time.Now()

	emit := func(f Frame) bool {
		kind := "text"
		if f.Event.SubAgentProgress != nil {
			kind = "progress"
		}

		select {
		case frames <- f:
			metrics.StreamFrames.WithLabelValues(kind).Inc()
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(ProgressFrame("Health coach is starting", StageStart, "")) {
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		emit(TextFrame(greeting(req.Language)))
		emit(ProgressFrame("Health coach finished", StageComplete, ""))
		metrics.RecordInvocation(time.Since(start), nil)
		return
	}

	binding := c.binder.Bind(ctx, req.Subject, req.SessionID)
	metrics.RecordBinding(string(binding.Mode))
	if binding.Degraded() {
		c.log.Warnf("Serving session %s without memory persistence: %s",
			binding.SessionID, binding.Reason)
	}

	instruction := BuildSystemPrompt(PromptParams{
		UserID:    req.Subject,
		SessionID: binding.SessionID,
		Timezone:  req.Timezone,
		Language:  req.Language,
		Now:       LocalizedNow(req.Timezone),
		Degraded:  binding.Degraded(),
	})

	run, err := c.newRun(binding, instruction)
	if err != nil {
		c.log.Errorf("Agent construction failed: %v", err)
		emit(ProgressFrame(err.Error(), StageError, ""))
		emit(TextFrame(fmt.Sprintf("Sorry, something went wrong while processing your request: %v", err)))
		metrics.RecordInvocation(time.Since(start), err)
		return
	}

	ctx = auth.ContextWithToken(ctx, req.Token)
	userContent := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.Prompt}},
	}

	streamedThisTurn := false
	var runErr error

	for event, eventErr := range run(ctx, req.Subject, binding.SessionID, userContent) {
		if eventErr != nil {
			runErr = eventErr
			break
		}
		if event == nil {
			continue
		}

		if event.UsageMetadata != nil {
			metrics.RecordTokens(c.modelID,
				int(event.UsageMetadata.PromptTokenCount),
				int(event.UsageMetadata.CandidatesTokenCount),
			)
		}

		if event.LLMResponse.Content != nil {
			for _, part := range event.LLMResponse.Content.Parts {
				if part.FunctionCall != nil {
					name := part.FunctionCall.Name
					c.log.Debugf("Tool call: %s", name)
					if !emit(ProgressFrame(fmt.Sprintf("Processing health data with %s", name), StageToolUse, name)) {
						return
					}
				}

				if part.Text == "" {
					continue
				}
				if event.LLMResponse.Partial {
					streamedThisTurn = true
					if !emit(TextFrame(part.Text)) {
						return
					}
					continue
				}
				// A completed turn repeats the text its partials already
				// carried; only emit it when nothing was streamed.
				if !streamedThisTurn {
					if !emit(TextFrame(part.Text)) {
						return
					}
				}
			}
		}

		if !event.LLMResponse.Partial {
			streamedThisTurn = false
		}

		if event.TurnComplete && event.IsFinalResponse() {
			break
		}
	}

	if runErr != nil {
		c.log.Errorf("Coaching turn failed for session %s: %v", binding.SessionID, runErr)
		emit(ProgressFrame(runErr.Error(), StageError, ""))
		emit(TextFrame(fmt.Sprintf("Sorry, something went wrong while processing your request: %v", runErr)))
		metrics.RecordInvocation(time.Since(start), runErr)
		return
	}

	emit(ProgressFrame("Health coach finished", StageComplete, ""))
	metrics.RecordInvocation(time.Since(start), nil)
}

// newAgentRun assembles the ADK agent and runner for one turn.
func (c *Coach) newAgentRun(binding session.Binding, instruction string) (runFunc, error) {
	ag, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Description: "Personal AI health coach backed by health manager tools",
		Model:       coachadk.NewModelAdapter(c.provider, c.modelID),
		Tools:       c.registry.All(),
		Instruction: instruction,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create coach agent")
	}

	r, err := runner.New(runner.Config{
		AppName:        c.appName,
		Agent:          ag,
		SessionService: binding.Service,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ADK runner")
	}

	return func(ctx context.Context, userID, sessionID string, msg *genai.Content) iter.Seq2[*adksession.Event, error] {
		return r.Run(ctx, userID, sessionID, msg, agent.RunConfig{
			StreamingMode: agent.StreamingModeSSE,
		})
	}, nil
}

func greeting(language string) string {
	code := strings.ToLower(language)
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = code[:i]
	}
	if code == "" {
		code = defaultLanguage
	}
	if text, ok := greetings[code]; ok {
		return text
	}
	return greetings["en"]
}
