package server

import (
	"net/http"

	activitydomain "github.com/coopsuite/copay/internal/activity/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListActivityLogs(c *gin.Context) {
	coopID, err := s.cooperativeScope(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filter := activitydomain.ListFilter{
		CooperativeID: snowflake.ID(coopID),
		Action:        c.Query("action"),
		TargetType:    c.Query("target_type"),
	}

	startAt, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_time", "invalid from date"))
		return
	}
	endAt, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_time", "invalid to date"))
		return
	}
	filter.StartAt = startAt
	filter.EndAt = endAt

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	filter.Limit = limit

	logs, err := s.activitySvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity_logs": logs})
}
