package conversation

import (
	"strings"
	"time"
)

// Role tags who authored a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message. ImageURL is only set on the final user
// turn of an assembled request and is never kept in history.
type Turn struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"-"`
}

// HasImage reports whether the turn carries an inline image.
func (t Turn) HasImage() bool {
	return t.ImageURL != ""
}

// Exchange is one answered question, in the shape the session log stores.
type Exchange struct {
	At            time.Time
	Question      string
	Response      string
	HadScreenshot bool
}

const screenshotTag = " [screenshot shared]"

// HistoryText is the user-turn text kept in history for a question.
func HistoryText(transcript string, hadScreenshot bool) string {
	if !hadScreenshot {
		return transcript
	}
	return strings.TrimRight(transcript, " ") + screenshotTag
}
