package sessions

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/profile"
	"interview-relay/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler exposes session endpoints.
type Handler struct {
	Mgr *Manager
}

// NewHandler constructs a Handler.
func NewHandler(mgr *Manager) *Handler {
	return &Handler{Mgr: mgr}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/session/create", h.create)
	rg.POST("/session/resume", h.uploadResume)
	rg.POST("/session/save", h.save)
	rg.POST("/session/conversation", h.appendEntry)
	rg.POST("/session/end", h.end)
	rg.GET("/sessions", h.list)
	rg.GET("/session/load/:name", h.load)
	rg.DELETE("/session/delete/:name", h.remove)
	rg.POST("/session/delete/:name", h.remove)
	rg.GET("/session/current", h.current)
	rg.POST("/conversation/clear", h.clearHistory)
}

type createRequest struct {
	Name string `json:"session_name"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, existed, err := h.Mgr.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("sessionName", sess.Name)
	respond.Status(c, gin.H{"session_name": sess.Name, "existed": existed})
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

	sess, text, err := h.Mgr.UploadResume(c.Request.Context(), c.PostForm("session_name"), fileHeader.Filename, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("sessionName", sess.Name)
	respond.Status(c, gin.H{
		"session_name":   sess.Name,
		"resume_snippet": profile.Snippet(text, 800),
		"resume_text":    text,
	})
}

type saveRequest struct {
	Name            string `json:"session_name"`
	JobDescription  string `json:"job_description"`
	ResumeText      string `json:"resume_text"`
	ModelPreference string `json:"model_preference"`
	APIKey          string `json:"openai_api_key"`
	CreatedAt       string `json:"created_at"`
}

func (h *Handler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	in := SaveInput{
		Name:            req.Name,
		JobDescription:  req.JobDescription,
		ResumeText:      req.ResumeText,
		ModelPreference: req.ModelPreference,
		APIKey:          req.APIKey,
	}
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, req.CreatedAt)
		if err != nil {
			respond.StatusError(c, http.StatusBadRequest, "validation_error", "created_at must be RFC 3339")
			return
		}
		in.CreatedAt = t
	}

	sess, err := h.Mgr.Save(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("sessionName", sess.Name)
	respond.Status(c, gin.H{"session": sess})
}

type appendRequest struct {
	Name          string `json:"session_name"`
	Question      string `json:"question"`
	Response      string `json:"response"`
	HadScreenshot bool   `json:"had_screenshot"`
}

func (h *Handler) appendEntry(c *gin.Context) {
	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	name, err := h.Mgr.Append(c.Request.Context(), req.Name, Entry{
		Question:      req.Question,
		Response:      req.Response,
		HadScreenshot: req.HadScreenshot,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("sessionName", name)
	respond.Status(c, gin.H{"session_name": name})
}

func (h *Handler) end(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	name, flushed, err := h.Mgr.End(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("sessionName", name)
	respond.Status(c, gin.H{"session_name": name, "flushed": flushed})
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Mgr.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"sessions": list})
}

func (h *Handler) load(c *gin.Context) {
	sess, log, err := h.Mgr.Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Status(c, gin.H{"session": sess, "conversation": log})
}

func (h *Handler) remove(c *gin.Context) {
	name := c.Param("name")
	if err := h.Mgr.Delete(c.Request.Context(), name); err != nil {
		writeError(c, err)
		return
	}
	respond.Status(c, gin.H{"session_name": name})
}

func (h *Handler) current(c *gin.Context) {
	var name any
	if cur := h.Mgr.Current(); cur != "" {
		name = cur
	}
	respond.OK(c, gin.H{"session_name": name})
}

func (h *Handler) clearHistory(c *gin.Context) {
	h.Mgr.ClearHistory()
	respond.Status(c, nil)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidName):
		respond.StatusError(c, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, ErrNotFound):
		respond.StatusError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrNoSession):
		respond.StatusError(c, http.StatusConflict, "no_active_session", err.Error())
	case errors.Is(err, profile.ErrUnsupportedFile), errors.Is(err, profile.ErrExtract), errors.Is(err, profile.ErrNoExtractor):
		status, code := profile.UploadErrorStatus(err)
		respond.StatusError(c, status, code, err.Error())
	default:
		respond.StatusError(c, http.StatusInternalServerError, "storage_error", err.Error())
	}
}
