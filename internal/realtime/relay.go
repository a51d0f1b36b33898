package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"
)

// errClientClosed ends a relay because the desktop client went away.
var errClientClosed = errors.New("client closed")

// UpstreamError ends a relay because the provider reported an error or
// dropped the socket. The client is closed with 1011 and Reason.
type UpstreamError struct {
	Reason string
}

func (e *UpstreamError) Error() string { return e.Reason }

// Counts summarizes one relay for the closing log line.
type Counts struct {
	AudioFrames int
	Transcripts int
}

type relay struct {
	client   *websocket.Conn
	upstream *websocket.Conn
	counts   Counts
	failed   atomic.Pointer[UpstreamError]
}

// Relay pipes audio from client to upstream and transcripts back until
// either side ends. Both pumps share one errgroup so the first failure
// cancels the other. An upstream failure is reported in preference to the
// client disconnect it causes.
func Relay(ctx context.Context, client, upstream *websocket.Conn) (Counts, error) {
	r := &relay{client: client, upstream: upstream}
	if err := wsjson.Write(ctx, upstream, newSessionUpdate()); err != nil {
		return r.counts, r.fail("Upstream Error: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.pumpAudio(gctx) })
	g.Go(func() error { return r.pumpTranscripts(gctx) })
	err := g.Wait()
	if uerr := r.failed.Load(); uerr != nil {
		return r.counts, uerr
	}
	return r.counts, err
}

func (r *relay) pumpAudio(ctx context.Context) error {
	for {
		typ, data, err := r.client.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", errClientClosed, err)
		}
		audio, ok := audioFrame(typ, data)
		if !ok {
			continue
		}
		if err := wsjson.Write(ctx, r.upstream, audioAppend{Type: "input_audio_buffer.append", Audio: audio}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return r.fail("Upstream Error: " + err.Error())
		}
		r.counts.AudioFrames++
	}
}

func (r *relay) pumpTranscripts(ctx context.Context) error {
	for {
		_, data, err := r.upstream.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if code := websocket.CloseStatus(err); code != -1 {
				return r.fail(fmt.Sprintf("OpenAI Closed: %d", code))
			}
			return r.fail("Upstream Error: " + err.Error())
		}

		var ev upstreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		var out Transcript
		switch ev.Type {
		case eventTranscriptDelta:
			out = Transcript{Type: "transcript", Text: ev.Delta}
		case eventTranscriptCompleted:
			out = Transcript{Type: "transcript", Text: ev.Transcript, Final: true}
		case eventError:
			msg := "unknown error"
			if ev.Error != nil && ev.Error.Message != "" {
				msg = ev.Error.Message
			}
			return r.fail("Upstream Error: " + msg)
		default:
			continue
		}
		if err := wsjson.Write(ctx, r.client, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", errClientClosed, err)
		}
		r.counts.Transcripts++
	}
}

// fail records the upstream failure and closes the client with 1011 before
// the group cancels, so the client sees the reason rather than a drop.
func (r *relay) fail(reason string) error {
	uerr := &UpstreamError{Reason: closeReason(reason)}
	if !r.failed.CompareAndSwap(nil, uerr) {
		return r.failed.Load()
	}
	_ = r.client.Close(websocket.StatusInternalError, uerr.Reason)
	return uerr
}
