package server

import (
	"net/http"

	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) InitiatePayment(c *gin.Context) {
	var req paymentdomain.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Initiate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}

	payment, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (s *Server) ListPayments(c *gin.Context) {
	filter, err := searchFilterFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.Search(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (s *Server) SearchPayments(c *gin.Context) {
	s.ListPayments(c)
}

func (s *Server) ListCooperativePayments(c *gin.Context) {
	payments, err := s.paymentSvc.ListForCooperative(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func searchFilterFromQuery(c *gin.Context) (paymentdomain.SearchFilter, error) {
	var filter paymentdomain.SearchFilter

	filter.Status = c.Query("status")
	filter.Channel = c.Query("channel")

	if v, err := parseOptionalInt64(c.Query("min_amount")); err != nil {
		return filter, newValidationError("min_amount", "invalid_amount", "invalid minimum amount")
	} else if v != nil {
		filter.MinAmount = *v
	}
	if v, err := parseOptionalInt64(c.Query("max_amount")); err != nil {
		return filter, newValidationError("max_amount", "invalid_amount", "invalid maximum amount")
	} else if v != nil {
		filter.MaxAmount = *v
	}

	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		return filter, newValidationError("from", "invalid_time", "invalid from date")
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		return filter, newValidationError("to", "invalid_time", "invalid to date")
	}
	filter.From = from
	filter.To = to

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		return filter, newValidationError("limit", "invalid_limit", "invalid limit")
	}
	filter.Limit = limit

	return filter, nil
}
