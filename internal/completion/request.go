package completion

import (
	"strings"

	"interview-relay/internal/conversation"
)

// Request is the body of /ai and /ai/stream.
type Request struct {
	Transcript      string `json:"transcript"`
	Role            string `json:"role"`
	Screenshot      string `json:"screenshot"`
	JobDescription  string `json:"job_description"`
	SaveToContext   *bool  `json:"save_to_context"`
	ModelPreference string `json:"model_preference"`
	// TextModel is the older name of ModelPreference.
	TextModel string `json:"text_model"`
}

// Saves reports whether the exchange should enter history and the session
// log. It defaults to true.
func (r Request) Saves() bool {
	return r.SaveToContext == nil || *r.SaveToContext
}

// RequestedModel returns the preferred text model, if any.
func (r Request) RequestedModel() string {
	if m := strings.TrimSpace(r.ModelPreference); m != "" {
		return m
	}
	return strings.TrimSpace(r.TextModel)
}

func (r Request) question() conversation.Question {
	return conversation.Question{
		Persona:        strings.TrimSpace(r.Role),
		Transcript:     r.Transcript,
		Screenshot:     r.Screenshot,
		JobDescription: r.JobDescription,
	}
}
