package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/coopsuite/copay/internal/identity"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetBalanceOverview(c *gin.Context) {
	overview, err := s.balanceSvc.Overview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

func (s *Server) GetCopayBalance(c *gin.Context) {
	balance, err := s.balanceSvc.CopayBalance(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (s *Server) GetCooperativeBalance(c *gin.Context) {
	coopID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_cooperative", "invalid cooperative id"))
		return
	}

	actor, _ := identity.FromContext(c.Request.Context())
	if !actor.IsPlatformAdmin() && actor.CooperativeID != coopID {
		AbortWithError(c, ErrForbidden)
		return
	}

	balance, err := s.balanceSvc.CooperativeBalance(c.Request.Context(), coopID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (s *Server) GetRevenueSummary(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if v, err := parseOptionalTime(c.Query("from"), false); err != nil {
		AbortWithError(c, newValidationError("from", "invalid_time", "invalid from date"))
		return
	} else if v != nil {
		from = *v
	}
	if v, err := parseOptionalTime(c.Query("to"), true); err != nil {
		AbortWithError(c, newValidationError("to", "invalid_time", "invalid to date"))
		return
	} else if v != nil {
		to = *v
	}
	if to.Before(from) {
		AbortWithError(c, newValidationError("to", "invalid_time_range", "to precedes from"))
		return
	}

	days, err := s.balanceSvc.RevenueSummary(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (s *Server) RedistributePayment(c *gin.Context) {
	paymentID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}

	force, _ := strconv.ParseBool(c.Query("force"))

	if err := s.balanceSvc.Redistribute(c.Request.Context(), paymentID, force); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "payment_id": paymentID})
}

func (s *Server) RedistributeBatch(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	result, err := s.balanceSvc.BatchRedistribute(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
