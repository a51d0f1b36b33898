package credentials

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/server/respond"
	"interview-relay/internal/shared/telemetry"
)

// Handler exposes the credential check endpoints.
type Handler struct {
	Keys     *KeyValidator
	Licenses *Licenses
}

// NewHandler constructs a Handler.
func NewHandler(keys *KeyValidator, licenses *Licenses) *Handler {
	return &Handler{Keys: keys, Licenses: licenses}
}

// RegisterRoutes attaches credential routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/validate-api-key", h.validateAPIKey)
	rg.POST("/validate-license", h.validateLicense)
}

type apiKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (h *Handler) validateAPIKey(c *gin.Context) {
	var req apiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res := h.Keys.Validate(c.Request.Context(), req.APIKey)
	telemetry.Info("credentials.api_key.checked", map[string]any{
		"key":   telemetry.MaskSecret(req.APIKey),
		"valid": res.Valid,
	})
	respond.OK(c, res)
}

type licenseRequest struct {
	LicenseKey string `json:"license_key"`
}

func (h *Handler) validateLicense(c *gin.Context) {
	var req licenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res := h.Licenses.Check(req.LicenseKey)
	telemetry.Info("credentials.license.checked", map[string]any{"status": res.Status})
	respond.OK(c, res)
}
