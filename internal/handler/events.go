package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
	"github.com/raisket/audittrail/internal/service"
)

type EventHandler struct {
	pipeline *service.Pipeline
}

func NewEventHandler(pipeline *service.Pipeline) *EventHandler {
	return &EventHandler{pipeline: pipeline}
}

// Log ingests one audit event. The response is 202 once the event is
// durably persisted; a storage failure surfaces as 502 so callers know
// the record was NOT written.
func (h *EventHandler) Log(c *gin.Context) {
	// Decoding over the default value keeps requires_retention true
	// unless the caller explicitly sent false.
	ev := model.NewAuditEvent()
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.Error(apperrors.NewValidation("malformed event payload: " + err.Error()))
		return
	}

	if err := h.pipeline.LogEvent(c.Request.Context(), &ev); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"request_id": ev.RequestID,
		"status":     "stored",
	})
}

// Trail serves filtered reads over the persisted audit trail.
func (h *EventHandler) Trail(c *gin.Context) {
	filter := model.TrailFilter{
		UserID:    c.Query("user_id"),
		Category:  model.EventCategory(c.Query("category")),
		EventType: c.Query("event_type"),
		Severity:  model.Severity(c.Query("severity")),
	}
	if filter.Category != "" && !model.ValidCategory(filter.Category) {
		c.Error(apperrors.NewValidation(fmt.Sprintf("unknown event_category %q", filter.Category)))
		return
	}

	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewValidation(err.Error()))
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewValidation(err.Error()))
			return
		}
		filter.To = &t
	}

	events, err := h.pipeline.QueryTrail(c.Request.Context(), filter.UserID, filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
