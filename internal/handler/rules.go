package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
	"github.com/raisket/audittrail/internal/service"
)

type RuleHandler struct {
	pipeline *service.Pipeline
}

func NewRuleHandler(pipeline *service.Pipeline) *RuleHandler {
	return &RuleHandler{pipeline: pipeline}
}

// List returns the active rule snapshot currently loaded in memory.
func (h *RuleHandler) List(c *gin.Context) {
	registry := h.pipeline.Registry()
	c.JSON(http.StatusOK, gin.H{
		"loaded_at": registry.LoadedAt(),
		"rules":     registry.Rules(),
	})
}

// Reload forces a rule refresh. A load failure keeps the cached
// snapshot; the operator still gets the error so they can investigate.
func (h *RuleHandler) Reload(c *gin.Context) {
	if err := h.pipeline.ReloadRules(c.Request.Context()); err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	registry := h.pipeline.Registry()
	c.JSON(http.StatusOK, gin.H{
		"status": "reloaded",
		"rules":  len(registry.Rules()),
	})
}
