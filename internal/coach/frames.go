package coach

// Stream frames mirror the event shapes the mobile client already consumes:
// text deltas and sub-agent progress updates.

// Frame is a single streamed event.
type Frame struct {
	Event EventPayload `json:"event"`
}

// EventPayload holds exactly one of the event kinds.
type EventPayload struct {
	ContentBlockDelta *ContentBlockDelta `json:"contentBlockDelta,omitempty"`
	SubAgentProgress  *SubAgentProgress  `json:"subAgentProgress,omitempty"`
}

// ContentBlockDelta carries an incremental piece of response text.
type ContentBlockDelta struct {
	Delta Delta `json:"delta"`
}

// Delta is the inner text increment.
type Delta struct {
	Text string `json:"text"`
}

// SubAgentProgress reports a coaching pipeline stage change.
type SubAgentProgress struct {
	Message  string `json:"message"`
	Stage    string `json:"stage"` // start|tool_use|complete|error
	ToolName string `json:"tool_name,omitempty"`
}

// Progress stages.
const (
	StageStart    = "start"
	StageToolUse  = "tool_use"
	StageComplete = "complete"
	StageError    = "error"
)

// TextFrame builds a content delta frame.
func TextFrame(text string) Frame {
	return Frame{Event: EventPayload{
		ContentBlockDelta: &ContentBlockDelta{Delta: Delta{Text: text}},
	}}
}

// ProgressFrame builds a sub-agent progress frame.
func ProgressFrame(message, stage, toolName string) Frame {
	return Frame{Event: EventPayload{
		SubAgentProgress: &SubAgentProgress{Message: message, Stage: stage, ToolName: toolName},
	}}
}
