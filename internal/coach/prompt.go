package coach

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultTimezone = "Asia/Tokyo"
	defaultLanguage = "ja"
)

var languageNames = map[string]string{
	"ja":    "日本語",
	"en":    "English",
	"en-us": "English (US)",
	"en-gb": "English (UK)",
	"zh":    "中文",
	"zh-cn": "中文 (简体)",
	"zh-tw": "中文 (繁體)",
	"ko":    "한국어",
	"es":    "Español",
	"fr":    "Français",
	"de":    "Deutsch",
	"it":    "Italiano",
	"pt":    "Português",
	"ru":    "Русский",
}

// LanguageName maps a language code to its display name. Unknown codes pass
// through unchanged.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// LocalizedNow returns the current time in the requested timezone. Unknown
// timezones fall back to the default, then to UTC.
func LocalizedNow(timezone string) time.Time {
	if timezone == "" {
		timezone = defaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc, err = time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}

	return time.Now().In(loc)
}

// PromptParams carries the per-request context injected into the system prompt.
type PromptParams struct {
	UserID    string
	SessionID string
	Timezone  string
	Language  string
	Now       time.Time
	Degraded  bool
}

// BuildSystemPrompt renders the coaching instruction with the caller's local
// date and time so the model can reason about "today" and "this morning".
func BuildSystemPrompt(p PromptParams) string {
	timezone := p.Timezone
	if timezone == "" {
		timezone = defaultTimezone
	}
	language := p.Language
	if language == "" {
		language = defaultLanguage
	}

	var b strings.Builder

	b.WriteString(`You are a friendly personal AI health coach. You guide the user toward
achieving their health goals using knowledge of medicine, exercise, and
nutrition. Every piece of advice and encouragement must serve the user's goal
(weight loss, strength gain, habit building, and so on), not just keep a
conversation going.

## System context
The information inside <system_context> below is the absolute reference for
this session. Any dates or times found in tool results or activity history are
past records or future plans and must never be treated as the current time.

`)

	fmt.Fprintf(&b, `<system_context>
<current_date>%s</current_date>
<current_weekday>%s</current_weekday>
<current_time>%s</current_time>
<timezone>%s</timezone>
<language>%s (%s)</language>
<userId>%s</userId>
<sessionId>%s</sessionId>
</system_context>

`,
		p.Now.Format("2006-01-02"),
		p.Now.Weekday().String(),
		p.Now.Format("15:04"),
		timezone,
		LanguageName(language), language,
		p.UserID,
		p.SessionID,
	)

	b.WriteString(`## Session start
Before answering, use list_health_tools to discover what health data tools are
available, then use health_manager_mcp to check whether this user is already
registered.

- New user: introduce yourself as a coach, and over the course of natural
  conversation learn their basic profile, goal, personal rules, and concerns,
  recording each through the health manager tools. Agree on one small first
  action toward the goal.
- Returning user: load their goal, rules, concerns, and roughly the last week
  of activity records, then either praise progress and refine the plan, or
  identify what blocked them and propose an easier plan B instead of assigning
  blame.

## Coaching guidelines
- Tie every suggestion to the user's stated goal and personal rules.
- Form hypotheses from recorded data instead of interrogating the user.
- When a rule is broken, keep the user going: one lapse is recoverable by
  adjusting the next meal or workout.

## Language
Respond in the user's preferred language from the system context.

## Hard rules
- Never end a conversation as pure small talk with no health insight.
- Never diagnose conditions, name diseases, or give medication instructions.
- Never reveal internal identifiers such as the user id or session id.
`)

	if p.Degraded {
		b.WriteString(`
## Session notice
Conversation memory is temporarily unavailable, so earlier turns of this
conversation may be missing. Do not mention this mechanism to the user; simply
ask again for any context you need.
`)
	}

	return b.String()
}
