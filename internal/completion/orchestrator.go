package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"interview-relay/internal/conversation"
	"interview-relay/internal/llm/openai"
	"interview-relay/internal/models"
	"interview-relay/internal/profile"
	"interview-relay/internal/shared/metrics"
	"interview-relay/internal/shared/telemetry"
	"interview-relay/internal/usage"
)

var (
	// ErrMissingKey reports that neither the profile nor the environment
	// holds an API key.
	ErrMissingKey = errors.New("no OpenAI API key configured")
	// ErrEmptyQuestion rejects a request with neither transcript nor image.
	ErrEmptyQuestion = errors.New("transcript is required")
	// ErrEmptyResponse reports a stream that finished without content.
	ErrEmptyResponse = errors.New("the model returned an empty response; try again or choose another model")
)

// Streamer starts a streaming chat completion.
type Streamer interface {
	StreamChat(ctx context.Context, apiKey string, req openai.ChatRequest) (*openai.ChatStream, error)
}

// Profiles supplies the profile used to build context.
type Profiles interface {
	Reload(ctx context.Context) (profile.Profile, error)
	Current() profile.Profile
}

// SessionLog receives completed exchanges for the current session.
type SessionLog interface {
	LogExchange(ctx context.Context, ex conversation.Exchange) (bool, error)
}

// Orchestrator runs one completion request end to end: assembly, routing,
// the upstream stream and the history, session and usage side effects.
type Orchestrator struct {
	llm         Streamer
	models      *models.Registry
	profiles    Profiles
	history     *conversation.History
	sessions    SessionLog
	usage       *usage.Service
	fallbackKey string
	now         func() time.Time
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	LLM         Streamer
	Models      *models.Registry
	Profiles    Profiles
	History     *conversation.History
	Sessions    SessionLog
	Usage       *usage.Service
	FallbackKey string
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{
		llm:         d.LLM,
		models:      d.Models,
		profiles:    d.Profiles,
		history:     d.History,
		sessions:    d.Sessions,
		usage:       d.Usage,
		fallbackKey: strings.TrimSpace(d.FallbackKey),
		now:         time.Now,
	}
}

type prepared struct {
	apiKey string
	model  models.Model
	budget models.Budget
	turns  []conversation.Turn
	image  string
}

func (o *Orchestrator) prepare(ctx context.Context, req Request) (prepared, error) {
	q := req.question()
	if strings.TrimSpace(q.Transcript) == "" && !q.HasScreenshot() {
		return prepared{}, ErrEmptyQuestion
	}

	// The resume may have been replaced on disk by the CLI or another
	// request, so read it fresh.
	p, err := o.profiles.Reload(ctx)
	if err != nil {
		telemetry.Warn("completion.profile_reload_failed", map[string]any{"err": err.Error()})
		p = o.profiles.Current()
	}

	key := strings.TrimSpace(p.APIKey)
	if key == "" {
		key = o.fallbackKey
	}
	if key == "" {
		return prepared{}, ErrMissingKey
	}

	turns, err := conversation.Assemble(conversation.Sources{
		ResumeText:     p.ResumeText,
		JobDescription: p.JobDescription,
		Metadata:       p.Metadata,
	}, o.history.Turns(), q)
	if err != nil {
		return prepared{}, err
	}

	model, budget := o.models.Select(q.HasScreenshot(), req.RequestedModel())
	return prepared{
		apiKey: key,
		model:  model,
		budget: budget,
		turns:  turns,
		image:  turns[len(turns)-1].ImageURL,
	}, nil
}

func chatRequest(p prepared) openai.ChatRequest {
	msgs := make([]openai.Message, 0, len(p.turns))
	for _, t := range p.turns {
		msgs = append(msgs, openai.Message{Role: string(t.Role), Text: t.Content, ImageURL: t.ImageURL})
	}
	return openai.ChatRequest{
		Model:               p.model.ID,
		Messages:            msgs,
		MaxTokens:           p.budget.MaxTokens,
		MaxCompletionTokens: p.budget.MaxCompletionTokens,
		Temperature:         p.budget.Temperature,
	}
}

// Run executes req and yields a heartbeat, then chunks, then exactly one
// terminal error or done event. Stopping iteration early cancels the
// upstream read. Nothing is retried.
func (o *Orchestrator) Run(ctx context.Context, req Request) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		start := o.now()
		since := func() float64 { return o.now().Sub(start).Seconds() }

		if !yield(Event{Kind: KindHeartbeat}) {
			return
		}

		outcome := metrics.OutcomeDone
		var modelID string
		defer func() {
			metrics.ObserveCompletion(modelID, outcome, since())
		}()

		prep, err := o.prepare(ctx, req)
		if err != nil {
			outcome = metrics.OutcomeConfigurationErr
			telemetry.Warn("completion.rejected", map[string]any{"err": err.Error(), "stage": "prepare"})
			yield(errorEvent(err.Error()))
			return
		}
		modelID = prep.model.ID

		stream, err := o.llm.StreamChat(ctx, prep.apiKey, chatRequest(prep))
		if err != nil {
			outcome = failureOutcome(ctx, metrics.OutcomeRejected)
			telemetry.Warn("completion.failed", map[string]any{"model": modelID, "stage": "upstream_call", "err": err.Error()})
			yield(errorEvent(upstreamMessage(err)))
			return
		}
		defer stream.Close()

		var full strings.Builder
		ttft := 0.0
		for {
			frag, err := stream.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				outcome = failureOutcome(ctx, metrics.OutcomeIterationFailed)
				telemetry.Warn("completion.failed", map[string]any{
					"model":        modelID,
					"stage":        "stream",
					"partial_size": full.Len(),
					"err":          err.Error(),
				})
				yield(errorEvent("stream interrupted: " + upstreamMessage(err)))
				return
			}
			if frag == "" {
				continue
			}
			if full.Len() == 0 {
				ttft = since()
				metrics.ObserveTTFT(ttft)
			}
			full.WriteString(frag)
			if !yield(Event{Kind: KindChunk, Text: frag}) {
				outcome = metrics.OutcomeCanceled
				return
			}
		}

		answer := full.String()
		if strings.TrimSpace(answer) == "" {
			outcome = metrics.OutcomeEmpty
			telemetry.Warn("completion.failed", map[string]any{"model": modelID, "stage": "empty_response"})
			yield(errorEvent(ErrEmptyResponse.Error()))
			return
		}

		summary := o.commit(context.WithoutCancel(ctx), prep, req, answer, stream.Usage())
		summary.TTFT = ttft
		summary.TotalTime = since()
		telemetry.Info("completion.done", map[string]any{
			"model":         modelID,
			"chars":         len(answer),
			"ttft":          summary.TTFT,
			"total_time":    summary.TotalTime,
			"response_cost": summary.ResponseCost,
			"saved":         req.Saves(),
		})
		yield(Event{Kind: KindDone, Done: &summary})
	}
}

// commit applies the success side effects. It runs detached from the
// request context so a client leaving after the last chunk still gets the
// exchange recorded.
func (o *Orchestrator) commit(ctx context.Context, p prepared, req Request, answer string, reported *openai.Usage) Summary {
	ex := conversation.Exchange{
		At:            o.now().UTC(),
		Question:      req.Transcript,
		Response:      answer,
		HadScreenshot: p.image != "",
	}
	if req.Saves() {
		logged, err := o.sessions.LogExchange(ctx, ex)
		if err != nil {
			telemetry.Warn("completion.session_log_failed", map[string]any{"err": err.Error()})
		}
		o.history.Append(ex, logged)
	}

	contents := make([]string, 0, len(p.turns))
	for _, t := range p.turns {
		contents = append(contents, t.Content)
	}
	rec := usage.Record{
		Model:        p.model.ID,
		InputTokens:  usage.EstimateMessageTokens(contents),
		OutputTokens: usage.EstimateTokens(answer),
		ImageTokens:  usage.EstimateImageTokens(p.image),
	}
	if reported != nil {
		telemetry.Debug("completion.provider_usage", map[string]any{
			"model":             p.model.ID,
			"prompt_tokens":     reported.PromptTokens,
			"completion_tokens": reported.CompletionTokens,
			"estimated_input":   rec.InputTokens + rec.ImageTokens,
			"estimated_output":  rec.OutputTokens,
		})
	}

	cost, snap, err := o.usage.Record(ctx, rec)
	if err != nil {
		telemetry.Warn("completion.usage_failed", map[string]any{"err": err.Error()})
	}
	return Summary{
		Model:        p.model.ID,
		Usage:        snap,
		ResponseCost: cost,
		Estimated:    true,
	}
}

// Answer runs req to completion and returns only the final text.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	for ev := range o.Run(ctx, req) {
		switch ev.Kind {
		case KindChunk:
			b.WriteString(ev.Text)
		case KindError:
			return "", errors.New(ev.Text)
		case KindDone:
			return b.String(), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("completion ended without a result")
}

func failureOutcome(ctx context.Context, otherwise string) string {
	if ctx.Err() != nil {
		return metrics.OutcomeCanceled
	}
	return otherwise
}

func upstreamMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return "connection closed before the model finished"
	}
	return err.Error()
}
