package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/apperrors"
	"github.com/raisket/audittrail/internal/service"
)

type ReportHandler struct {
	reporter *service.Reporter
}

func NewReportHandler(reporter *service.Reporter) *ReportHandler {
	return &ReportHandler{reporter: reporter}
}

// Get serves a compliance report for a time window. The window defaults
// to the last 30 days, the type to "activity".
func (h *ReportHandler) Get(c *gin.Context) {
	reportType := model.ReportType(c.DefaultQuery("type", string(model.ReportActivity)))

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewValidation(err.Error()))
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewValidation(err.Error()))
			return
		}
		to = t
	}

	summary, err := h.reporter.Report(c.Request.Context(), reportType, from, to)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
