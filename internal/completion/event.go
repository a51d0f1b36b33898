package completion

import (
	"encoding/json"

	"interview-relay/internal/usage"
)

// Kind discriminates stream events.
type Kind string

const (
	KindHeartbeat Kind = "heartbeat"
	KindChunk     Kind = "chunk"
	KindError     Kind = "error"
	KindDone      Kind = "done"
)

// maxErrorChars bounds error text relayed to the client.
const maxErrorChars = 200

// Summary is carried by the terminal done event. Timings are seconds since
// the request started; TTFT is zero when no chunk was produced.
type Summary struct {
	Model        string         `json:"model"`
	Usage        usage.Snapshot `json:"usage"`
	ResponseCost float64        `json:"response_cost"`
	TTFT         float64        `json:"ttft"`
	TotalTime    float64        `json:"total_time"`
	Estimated    bool           `json:"estimated"`
}

// Event is one element of a completion stream.
type Event struct {
	Kind Kind
	// Text is the chunk content or the error message.
	Text string
	Done *Summary
}

// MarshalJSON renders the client wire shape: {heartbeat:true},
// {chunk}, {error} or {done:true, model, usage, ...}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindHeartbeat:
		return json.Marshal(struct {
			Heartbeat bool `json:"heartbeat"`
		}{true})
	case KindChunk:
		return json.Marshal(struct {
			Chunk string `json:"chunk"`
		}{e.Text})
	case KindDone:
		var s Summary
		if e.Done != nil {
			s = *e.Done
		}
		return json.Marshal(struct {
			Done bool `json:"done"`
			Summary
		}{true, s})
	default:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Text})
	}
}

func errorEvent(msg string) Event {
	r := []rune(msg)
	if len(r) > maxErrorChars {
		msg = string(r[:maxErrorChars])
	}
	return Event{Kind: KindError, Text: msg}
}
