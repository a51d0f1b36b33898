package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"interview-relay/internal/conversation"
	"interview-relay/internal/llm/openai"
	"interview-relay/internal/models"
	"interview-relay/internal/profile"
	"interview-relay/internal/usage"
)

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type fakeStreamer struct {
	mu       sync.Mutex
	body     func() string
	err      error
	requests []openai.ChatRequest
	keys     []string
	last     *trackingBody
}

func (f *fakeStreamer) StreamChat(_ context.Context, apiKey string, req openai.ChatRequest) (*openai.ChatStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return nil, f.err
	}
	f.last = &trackingBody{Reader: strings.NewReader(f.body())}
	return openai.NewChatStream(f.last), nil
}

func sseBody(fragments ...string) string {
	var b strings.Builder
	for _, frag := range fragments {
		chunk, _ := json.Marshal(map[string]any{
			"model":   "gpt-3.5-turbo",
			"choices": []any{map[string]any{"delta": map[string]any{"content": frag}, "finish_reason": nil}},
		})
		fmt.Fprintf(&b, "data: %s\n\n", chunk)
	}
	b.WriteString(`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n")
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

type fakeProfiles struct {
	p profile.Profile
}

func (f *fakeProfiles) Reload(context.Context) (profile.Profile, error) { return f.p.Clone(), nil }
func (f *fakeProfiles) Current() profile.Profile                        { return f.p.Clone() }

type fakeSessions struct {
	current string
	logged  []conversation.Exchange
}

func (f *fakeSessions) LogExchange(_ context.Context, ex conversation.Exchange) (bool, error) {
	if f.current == "" {
		return false, nil
	}
	f.logged = append(f.logged, ex)
	return true, nil
}

type harness struct {
	orch     *Orchestrator
	llm      *fakeStreamer
	history  *conversation.History
	sessions *fakeSessions
	usage    *usage.Service
	profiles *fakeProfiles
}

func newHarness(t *testing.T, answer ...string) *harness {
	t.Helper()
	registry := models.DefaultRegistry()
	h := &harness{
		llm:      &fakeStreamer{body: func() string { return sseBody(answer...) }},
		history:  conversation.NewHistory(conversation.MaxHistoryEntries),
		sessions: &fakeSessions{},
		usage:    usage.NewService(registry),
		profiles: &fakeProfiles{p: profile.Profile{APIKey: "sk-profile"}},
	}
	h.orch = NewOrchestrator(Deps{
		LLM:      h.llm,
		Models:   registry,
		Profiles: h.profiles,
		History:  h.history,
		Sessions: h.sessions,
		Usage:    h.usage,
	})
	return h
}

func collect(seq func(func(Event) bool)) []Event {
	var out []Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func TestRunAcmeScenario(t *testing.T) {
	h := newHarness(t, "I built ", "ETL pipelines...")
	h.profiles.p.ResumeText = "Built ETL pipelines at Acme"

	events := collect(h.orch.Run(context.Background(), Request{
		Transcript:    "Tell me about yourself",
		Role:          "data engineer",
		SaveToContext: boolPtr(true),
	}))

	if len(events) != 4 {
		t.Fatalf("expected heartbeat, 2 chunks, done; got %+v", events)
	}
	if events[0].Kind != KindHeartbeat || events[1].Text != "I built " || events[2].Text != "ETL pipelines..." {
		t.Fatalf("unexpected event order %+v", events)
	}
	done := events[3]
	if done.Kind != KindDone || done.Done.Model != "gpt-3.5-turbo" || done.Done.Usage.RequestCount != 1 || !done.Done.Estimated {
		t.Fatalf("unexpected done event %+v", done.Done)
	}
	if done.Done.ResponseCost <= 0 {
		t.Fatalf("expected a cost estimate")
	}

	sent := h.llm.requests[0].Messages
	if len(sent) != 3 || sent[0].Role != "system" || !strings.Contains(sent[1].Text, "Built ETL pipelines at Acme") || sent[2].Text != "Tell me about yourself" {
		t.Fatalf("unexpected assembled turns %+v", sent)
	}
	if h.llm.keys[0] != "sk-profile" {
		t.Fatalf("expected profile key, got %q", h.llm.keys[0])
	}

	turns := h.history.Turns()
	if len(turns) != 2 || turns[0].Content != "Tell me about yourself" || turns[1].Content != "I built ETL pipelines..." {
		t.Fatalf("expected exactly one new pair, got %+v", turns)
	}
}

func TestRunWithoutSaveLeavesHistoryAndSession(t *testing.T) {
	h := newHarness(t, "answer")
	h.sessions.current = "s1"
	h.history.Append(conversation.Exchange{Question: "q0", Response: "a0"}, true)

	collect(h.orch.Run(context.Background(), Request{Transcript: "one-off", SaveToContext: boolPtr(false)}))

	if h.history.Len() != 2 {
		t.Fatalf("history changed: %d", h.history.Len())
	}
	if len(h.sessions.logged) != 0 {
		t.Fatalf("session log changed: %+v", h.sessions.logged)
	}
	snap, _ := h.usage.Get(context.Background())
	if snap.RequestCount != 1 {
		t.Fatalf("usage should still be recorded, got %+v", snap)
	}
}

func TestRunElevenCallsKeepsMostRecentTwenty(t *testing.T) {
	h := newHarness(t, "a")
	for i := 1; i <= 11; i++ {
		collect(h.orch.Run(context.Background(), Request{Transcript: fmt.Sprintf("q%d", i)}))
		want := 2 * i
		if want > 20 {
			want = 20
		}
		if h.history.Len() != want {
			t.Fatalf("after call %d: expected %d entries, got %d", i, want, h.history.Len())
		}
	}
	turns := h.history.Turns()
	if turns[0].Content != "q2" || turns[18].Content != "q11" {
		t.Fatalf("expected oldest pair dropped, got %q..%q", turns[0].Content, turns[18].Content)
	}
	// The eleventh request carried the ten previous exchanges as context.
	if got := len(h.llm.requests[10].Messages); got != 1+20+1 {
		t.Fatalf("expected 22 messages on the last call, got %d", got)
	}
}

func TestRunLogsToCurrentSession(t *testing.T) {
	h := newHarness(t, "answer")
	h.sessions.current = "s1"

	collect(h.orch.Run(context.Background(), Request{Transcript: "q", Screenshot: "iVBOR"}))

	if len(h.sessions.logged) != 1 || !h.sessions.logged[0].HadScreenshot || h.sessions.logged[0].Question != "q" {
		t.Fatalf("unexpected session log %+v", h.sessions.logged)
	}
	if pending, _ := h.history.Unlogged(); len(pending) != 0 {
		t.Fatalf("logged exchange must not be flushed again")
	}
	if got := h.history.Turns()[0].Content; got != "q [screenshot shared]" {
		t.Fatalf("unexpected history text %q", got)
	}
}

func TestRunEmptyResponseSkipsSideEffects(t *testing.T) {
	h := newHarness(t)
	h.sessions.current = "s1"

	events := collect(h.orch.Run(context.Background(), Request{Transcript: "q"}))
	last := events[len(events)-1]
	if last.Kind != KindError || !strings.Contains(last.Text, "empty response") {
		t.Fatalf("expected empty-response error, got %+v", events)
	}
	snap, _ := h.usage.Get(context.Background())
	if h.history.Len() != 0 || len(h.sessions.logged) != 0 || snap.RequestCount != 0 {
		t.Fatalf("side effects applied on empty response")
	}
}

func TestRunUpstreamRejection(t *testing.T) {
	h := newHarness(t)
	h.llm.err = &openai.APIError{StatusCode: http.StatusBadRequest, Type: "invalid_request_error", Message: strings.Repeat("bad request ", 40)}

	events := collect(h.orch.Run(context.Background(), Request{Transcript: "q"}))
	if len(events) != 2 || events[0].Kind != KindHeartbeat || events[1].Kind != KindError {
		t.Fatalf("expected heartbeat then one error, got %+v", events)
	}
	if n := len([]rune(events[1].Text)); n > 200 {
		t.Fatalf("error not truncated: %d chars", n)
	}
	if len(h.llm.requests) != 1 {
		t.Fatalf("expected no retry, got %d calls", len(h.llm.requests))
	}
	if h.history.Len() != 0 {
		t.Fatalf("history changed on rejection")
	}
}

func TestRunMidStreamFailure(t *testing.T) {
	h := newHarness(t)
	h.llm.body = func() string {
		return `data: {"choices":[{"delta":{"content":"partial"},"finish_reason":null}]}` + "\n\n"
	}

	events := collect(h.orch.Run(context.Background(), Request{Transcript: "q"}))
	if len(events) != 3 || events[1].Text != "partial" || events[2].Kind != KindError {
		t.Fatalf("expected chunk then error, got %+v", events)
	}
	if !strings.Contains(events[2].Text, "stream interrupted") {
		t.Fatalf("unexpected error text %q", events[2].Text)
	}
	snap, _ := h.usage.Get(context.Background())
	if h.history.Len() != 0 || snap.RequestCount != 0 {
		t.Fatalf("partial content must not be committed")
	}
	if !h.llm.last.closed {
		t.Fatalf("upstream body not closed")
	}
}

func TestRunMissingKey(t *testing.T) {
	h := newHarness(t, "x")
	h.profiles.p.APIKey = ""

	events := collect(h.orch.Run(context.Background(), Request{Transcript: "q"}))
	if events[len(events)-1].Text != ErrMissingKey.Error() {
		t.Fatalf("expected missing key error, got %+v", events)
	}
	if len(h.llm.requests) != 0 {
		t.Fatalf("upstream must not be called")
	}
}

func TestRunFallsBackToEnvironmentKey(t *testing.T) {
	h := newHarness(t, "x")
	h.profiles.p.APIKey = ""
	h.orch.fallbackKey = "sk-env"
	collect(h.orch.Run(context.Background(), Request{Transcript: "q"}))
	if len(h.llm.keys) != 1 || h.llm.keys[0] != "sk-env" {
		t.Fatalf("expected env key, got %v", h.llm.keys)
	}
}

func TestRunRoutesAndBudgets(t *testing.T) {
	h := newHarness(t, "x")

	collect(h.orch.Run(context.Background(), Request{Transcript: "q", Screenshot: "abc", ModelPreference: "gpt-5-mini"}))
	vision := h.llm.requests[0]
	if vision.Model != "gpt-4o" || vision.Temperature == nil || vision.MaxTokens != 600 {
		t.Fatalf("unexpected vision request %+v", vision)
	}
	if img := vision.Messages[len(vision.Messages)-1].ImageURL; img != "data:image/png;base64,abc" {
		t.Fatalf("unexpected image url %q", img)
	}

	collect(h.orch.Run(context.Background(), Request{Transcript: "q", TextModel: "gpt-5-mini"}))
	reasoning := h.llm.requests[1]
	if reasoning.Model != "gpt-5-mini" || reasoning.Temperature != nil || reasoning.MaxTokens != 0 || reasoning.MaxCompletionTokens != 4000 {
		t.Fatalf("unexpected reasoning request %+v", reasoning)
	}

	collect(h.orch.Run(context.Background(), Request{Transcript: "q", ModelPreference: "made-up"}))
	if got := h.llm.requests[2].Model; got != "gpt-3.5-turbo" {
		t.Fatalf("expected default model, got %q", got)
	}
}

func TestRunStopsWhenConsumerLeaves(t *testing.T) {
	h := newHarness(t, "one", "two", "three")
	for ev := range h.orch.Run(context.Background(), Request{Transcript: "q"}) {
		if ev.Kind == KindChunk {
			break
		}
	}
	if !h.llm.last.closed {
		t.Fatalf("upstream body not closed after consumer stopped")
	}
	if h.history.Len() != 0 {
		t.Fatalf("abandoned request must not be committed")
	}
}

func TestAnswer(t *testing.T) {
	h := newHarness(t, "Hello ", "world")
	got, err := h.orch.Answer(context.Background(), Request{Transcript: "q"})
	if err != nil || got != "Hello world" {
		t.Fatalf("Answer = %q, %v", got, err)
	}

	h.llm.err = &openai.APIError{StatusCode: http.StatusUnauthorized, Message: "Incorrect API key provided"}
	if _, err := h.orch.Answer(context.Background(), Request{Transcript: "q"}); err == nil || err.Error() != "Incorrect API key provided" {
		t.Fatalf("expected upstream message, got %v", err)
	}
}

func TestEventWireShapes(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: KindHeartbeat}, `{"heartbeat":true}`},
		{Event{Kind: KindChunk, Text: "hi"}, `{"chunk":"hi"}`},
		{Event{Kind: KindError, Text: "boom"}, `{"error":"boom"}`},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.ev)
		if err != nil || string(raw) != tc.want {
			t.Fatalf("marshal %v = %s (%v), want %s", tc.ev.Kind, raw, err, tc.want)
		}
	}

	raw, _ := json.Marshal(Event{Kind: KindDone, Done: &Summary{Model: "gpt-4o", Estimated: true}})
	var done map[string]any
	if err := json.Unmarshal(raw, &done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if done["done"] != true || done["model"] != "gpt-4o" || done["usage"] == nil || done["estimated"] != true {
		t.Fatalf("unexpected done shape %s", raw)
	}
}
