package profile

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/server/respond"
	"interview-relay/internal/shared/telemetry"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	snippetChars  = 800
)

// Handler wires profile HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/profile", h.get)
	rg.POST("/profile", h.replace)
	rg.POST("/profile/resume", h.uploadResume)
}

// get returns the profile with the credential masked.
func (h *Handler) get(c *gin.Context) {
	p := h.Svc.Current()
	p.APIKey = maskedKey(p.APIKey)
	respond.OK(c, p)
}

func (h *Handler) replace(c *gin.Context) {
	var p Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	// A client echoing the masked key from GET keeps the stored one.
	if current := h.Svc.Current().APIKey; current != "" && p.APIKey == maskedKey(current) {
		p.APIKey = current
	}
	if err := h.Svc.Replace(c.Request.Context(), p); err != nil {
		respond.StatusError(c, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respond.Status(c, nil)
}

func (h *Handler) uploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.StatusError(c, http.StatusBadRequest, "validation_error", "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.StatusError(c, http.StatusBadRequest, "validation_error", "unable to read file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.StatusError(c, http.StatusBadRequest, "validation_error", "unable to read file")
		return
	}

	text, err := h.Svc.UploadResume(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		status, code := UploadErrorStatus(err)
		respond.StatusError(c, status, code, err.Error())
		return
	}

	telemetry.Info("profile.resume.uploaded", map[string]any{
		"file":  fileHeader.Filename,
		"chars": len(text),
	})
	respond.Status(c, gin.H{
		"resume_snippet": Snippet(text, snippetChars),
		"resume_text":    text,
	})
}

// UploadErrorStatus maps resume upload errors to an HTTP status and code.
func UploadErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnsupportedFile):
		return http.StatusBadRequest, "unsupported_file"
	case errors.Is(err, ErrExtract):
		return http.StatusUnprocessableEntity, "extract_failed"
	case errors.Is(err, ErrNoExtractor):
		return http.StatusServiceUnavailable, "extractor_unavailable"
	default:
		return http.StatusInternalServerError, "storage_error"
	}
}

// Snippet returns at most n runes of s.
func Snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func maskedKey(key string) string {
	if key == "" {
		return ""
	}
	return telemetry.MaskSecret(key)
}
