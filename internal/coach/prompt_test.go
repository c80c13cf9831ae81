package coach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "日本語", LanguageName("ja"))
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "English (US)", LanguageName("EN-US"))
	assert.Equal(t, "xx-unknown", LanguageName("xx-unknown"))
}

func TestLocalizedNow_DefaultsAndFallsBack(t *testing.T) {
	assert.Equal(t, "Asia/Tokyo", LocalizedNow("").Location().String())
	assert.Equal(t, "Asia/Tokyo", LocalizedNow("Not/AZone").Location().String())
	assert.Equal(t, "America/New_York", LocalizedNow("America/New_York").Location().String())
}

func TestBuildSystemPrompt_InjectsContext(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	assert.NoError(t, err)
	now := time.Date(2025, 6, 2, 9, 30, 0, 0, loc)

	prompt := BuildSystemPrompt(PromptParams{
		UserID:    "user-42",
		SessionID: "healthmate-chat-abc",
		Timezone:  "Asia/Tokyo",
		Language:  "ja",
		Now:       now,
	})

	assert.Contains(t, prompt, "<current_date>2025-06-02</current_date>")
	assert.Contains(t, prompt, "<current_weekday>Monday</current_weekday>")
	assert.Contains(t, prompt, "<current_time>09:30</current_time>")
	assert.Contains(t, prompt, "<timezone>Asia/Tokyo</timezone>")
	assert.Contains(t, prompt, "<language>日本語 (ja)</language>")
	assert.Contains(t, prompt, "<userId>user-42</userId>")
	assert.Contains(t, prompt, "<sessionId>healthmate-chat-abc</sessionId>")
	assert.NotContains(t, prompt, "Session notice")
}

func TestBuildSystemPrompt_Defaults(t *testing.T) {
	prompt := BuildSystemPrompt(PromptParams{
		UserID: "user-42",
		Now:    time.Now(),
	})

	assert.Contains(t, prompt, "<timezone>Asia/Tokyo</timezone>")
	assert.Contains(t, prompt, "<language>日本語 (ja)</language>")
}

func TestBuildSystemPrompt_DegradedNotice(t *testing.T) {
	prompt := BuildSystemPrompt(PromptParams{
		UserID:   "user-42",
		Now:      time.Now(),
		Degraded: true,
	})

	assert.Contains(t, prompt, "Conversation memory is temporarily unavailable")
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, greetings["ja"], greeting(""))
	assert.Equal(t, greetings["ja"], greeting("ja"))
	assert.Equal(t, greetings["en"], greeting("en-US"))
	assert.Equal(t, greetings["en"], greeting("fr"))
}
