package realtime

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"unicode/utf8"

	"github.com/coder/websocket"
)

const (
	eventTranscriptDelta     = "conversation.item.input_audio_transcription.delta"
	eventTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	eventError               = "error"

	// maxCloseReason bounds the error text put in a close frame. The
	// protocol caps the reason at 123 bytes.
	maxCloseReason      = 100
	maxCloseReasonBytes = 123
)

// sessionUpdate configures the upstream session for input transcription.
type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string            `json:"modalities"`
	InputAudioFormat        string              `json:"input_audio_format"`
	InputAudioTranscription transcriptionConfig `json:"input_audio_transcription"`
	TurnDetection           turnDetection       `json:"turn_detection"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type string `json:"type"`
}

func newSessionUpdate() sessionUpdate {
	return sessionUpdate{
		Type: "session.update",
		Session: sessionConfig{
			Modalities:              []string{"text"},
			InputAudioFormat:        "pcm16",
			InputAudioTranscription: transcriptionConfig{Model: "whisper-1"},
			TurnDetection:           turnDetection{Type: "server_vad"},
		},
	}
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// Transcript is the only message sent back to the client.
type Transcript struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type upstreamEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	Error      *struct {
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// audioFrame extracts the base64 audio carried by one client frame. Text
// frames are either {"audio":"<base64>"} or the bare base64 payload; binary
// frames are raw PCM and get encoded here.
func audioFrame(typ websocket.MessageType, data []byte) (string, bool) {
	if typ == websocket.MessageBinary {
		if len(data) == 0 {
			return "", false
		}
		return base64.StdEncoding.EncodeToString(data), true
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", false
	}
	if trimmed[0] == '{' {
		var frame struct {
			Audio string `json:"audio"`
		}
		if err := json.Unmarshal(trimmed, &frame); err != nil || frame.Audio == "" {
			return "", false
		}
		return frame.Audio, true
	}
	return string(trimmed), true
}

func closeReason(msg string) string {
	r := []rune(msg)
	if len(r) > maxCloseReason {
		r = r[:maxCloseReason]
	}
	out := string(r)
	for len(out) > maxCloseReasonBytes {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	return out
}
