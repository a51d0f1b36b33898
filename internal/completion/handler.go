package completion

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/server/respond"
	"interview-relay/internal/shared/telemetry"
)

const maxRequestBody = 20 << 20 // screenshots arrive inline

// Handler exposes the completion endpoints.
type Handler struct {
	Orch *Orchestrator
}

// NewHandler constructs a Handler.
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{Orch: o}
}

// RegisterRoutes attaches completion routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/ai", h.answer)
	rg.POST("/ai/stream", h.stream)
}

func (h *Handler) bind(c *gin.Context) (Request, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return Request{}, false
	}
	return req, true
}

// answer is the non-streaming variant. Failures are reported in the payload
// as {answer:"Error: ..."} with 200, which is what the desktop client reads.
func (h *Handler) answer(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	text, err := h.Orch.Answer(c.Request.Context(), req)
	if err != nil {
		c.Set("outcome", "error")
		respond.OK(c, gin.H{"answer": "Error: " + err.Error()})
		return
	}
	c.Set("outcome", "done")
	respond.OK(c, gin.H{"answer": text})
}

func (h *Handler) stream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "streaming not supported", nil)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := c.Request.Context()
	for ev := range h.Orch.Run(ctx, req) {
		if ev.Kind == KindDone || ev.Kind == KindError {
			c.Set("outcome", string(ev.Kind))
			if ev.Done != nil {
				c.Set("model", ev.Done.Model)
			}
		}
		if err := writeSSE(w, ev); err != nil {
			telemetry.Warn("completion.sse_write_failed", map[string]any{"err": err.Error()})
			return
		}
		flusher.Flush()
		if ctx.Err() != nil {
			return
		}
	}
}

// writeSSE writes one unnamed event: "data: <json>\n\n".
func writeSSE(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
