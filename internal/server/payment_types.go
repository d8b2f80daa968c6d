package server

import (
	"net/http"

	"github.com/coopsuite/copay/internal/identity"
	paymenttypedomain "github.com/coopsuite/copay/internal/paymenttype/domain"
	"github.com/gin-gonic/gin"
)

// cooperativeScope resolves which cooperative the call operates on. Admins
// act on their own cooperative; platform admins may name any with the
// cooperative_id query parameter.
func (s *Server) cooperativeScope(c *gin.Context) (int64, error) {
	actor, _ := identity.FromContext(c.Request.Context())

	if actor.IsPlatformAdmin() {
		if v, err := parseOptionalInt64(c.Query("cooperative_id")); err != nil {
			return 0, newValidationError("cooperative_id", "invalid_cooperative", "invalid cooperative id")
		} else if v != nil {
			return *v, nil
		}
	}
	if actor.CooperativeID > 0 {
		return actor.CooperativeID, nil
	}
	return 0, newValidationError("cooperative_id", "invalid_cooperative", "cooperative id required")
}

func (s *Server) ListPaymentTypes(c *gin.Context) {
	coopID, err := s.cooperativeScope(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	types, err := s.paymentTypeSvc.ListByCooperative(c.Request.Context(), coopID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_types": types})
}

func (s *Server) ListActivePaymentTypes(c *gin.Context) {
	coopID, err := s.cooperativeScope(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	types, err := s.paymentTypeSvc.ListActiveByCooperative(c.Request.Context(), coopID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_types": types})
}

func (s *Server) CreatePaymentType(c *gin.Context) {
	var req paymenttypedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := identity.FromContext(c.Request.Context())
	if !actor.IsPlatformAdmin() || req.CooperativeID == 0 {
		req.CooperativeID = actor.CooperativeID
	}

	created, err := s.paymentTypeSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) UpdatePaymentType(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_payment_type_id", "invalid payment type id"))
		return
	}

	var req paymenttypedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	coopID, scopeErr := s.cooperativeScope(c)
	if scopeErr != nil {
		AbortWithError(c, scopeErr)
		return
	}
	req.ID = id
	req.CooperativeID = coopID

	updated, err := s.paymentTypeSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) ActivatePaymentType(c *gin.Context) {
	s.setPaymentTypeActive(c, true)
}

func (s *Server) DeactivatePaymentType(c *gin.Context) {
	s.setPaymentTypeActive(c, false)
}

func (s *Server) setPaymentTypeActive(c *gin.Context, active bool) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_payment_type_id", "invalid payment type id"))
		return
	}

	coopID, scopeErr := s.cooperativeScope(c)
	if scopeErr != nil {
		AbortWithError(c, scopeErr)
		return
	}

	updated, err := s.paymentTypeSvc.SetActive(c.Request.Context(), coopID, id, active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
