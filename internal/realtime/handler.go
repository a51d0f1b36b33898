package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/metrics"
	"interview-relay/internal/shared/telemetry"
)

// maxFrameBytes bounds a single audio or upstream frame.
const maxFrameBytes = 1 << 20

const dialTimeout = 15 * time.Second

// KeySource resolves the provider credential at connect time.
type KeySource interface {
	APIKey(fallback string) string
}

// Config locates the upstream realtime endpoint.
type Config struct {
	URL            string
	Model          string
	FallbackKey    string
	OriginPatterns []string
}

// Handler accepts /realtime sockets and relays them upstream.
type Handler struct {
	keys KeySource
	cfg  Config
}

// NewHandler constructs a Handler.
func NewHandler(keys KeySource, cfg Config) *Handler {
	if len(cfg.OriginPatterns) == 0 {
		cfg.OriginPatterns = []string{"*"}
	}
	return &Handler{keys: keys, cfg: cfg}
}

// RegisterRoutes attaches the realtime route to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/realtime", h.serve)
}

// UpstreamURL appends the model query parameter to the configured URL.
func (h *Handler) UpstreamURL() string {
	u, err := url.Parse(h.cfg.URL)
	if err != nil || h.cfg.Model == "" {
		return h.cfg.URL
	}
	q := u.Query()
	q.Set("model", h.cfg.Model)
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *Handler) serve(c *gin.Context) {
	client, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		telemetry.Warn("realtime.accept_failed", map[string]any{"err": err.Error()})
		return
	}
	defer client.CloseNow()
	client.SetReadLimit(maxFrameBytes)

	key := strings.TrimSpace(h.keys.APIKey(h.cfg.FallbackKey))
	if key == "" {
		telemetry.Warn("realtime.rejected", map[string]any{"reason": "missing_api_key"})
		_ = client.Close(websocket.StatusPolicyViolation, "Missing API Key")
		return
	}

	ctx := c.Request.Context()
	upstream, err := h.dial(ctx, key)
	if err != nil {
		reason := closeReason("Upstream Error: " + err.Error())
		telemetry.Warn("realtime.dial_failed", map[string]any{"err": err.Error()})
		_ = client.Close(websocket.StatusInternalError, reason)
		return
	}
	defer upstream.CloseNow()
	upstream.SetReadLimit(maxFrameBytes)

	metrics.RealtimeOpened()
	defer metrics.RealtimeClosed()
	start := time.Now()
	telemetry.Info("realtime.open", map[string]any{
		"model": h.cfg.Model,
		"key":   telemetry.MaskSecret(key),
	})

	counts, err := Relay(ctx, client, upstream)

	fields := map[string]any{
		"audio_frames": counts.AudioFrames,
		"transcripts":  counts.Transcripts,
		"duration_ms":  time.Since(start).Milliseconds(),
	}
	var uerr *UpstreamError
	switch {
	case errors.As(err, &uerr):
		fields["reason"] = uerr.Reason
		_ = upstream.Close(websocket.StatusNormalClosure, "")
	default:
		fields["reason"] = "client closed"
		_ = upstream.Close(websocket.StatusNormalClosure, "client closed")
		_ = client.Close(websocket.StatusNormalClosure, "")
	}
	telemetry.Info("realtime.closed", fields)
}

func (h *Handler) dial(ctx context.Context, key string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, resp, err := websocket.Dial(ctx, h.UpstreamURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + key},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}
