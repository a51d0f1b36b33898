package models

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/server/respond"
)

// Handler exposes the registry.
type Handler struct {
	Registry *Registry
}

// NewHandler constructs a Handler.
func NewHandler(r *Registry) *Handler {
	return &Handler{Registry: r}
}

// RegisterRoutes attaches model routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/models", h.list)
}

func (h *Handler) list(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{
		"models":        h.Registry.List(),
		"default":       h.Registry.DefaultText,
		"vision_model":  h.Registry.VisionModel,
		"price_unit":    "USD per 1M tokens",
		"pricing_notes": "costs shown in the client are estimates with a 10% margin",
	})
}
