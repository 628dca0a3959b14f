package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	rentdomain "github.com/zeltonlabs/zelton/internal/rentpayment/domain"
)

type initiateRentPaymentRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	PaymentType string `json:"payment_type"`
}

func (s *Server) InitiateRentPayment(c *gin.Context) {
	var req initiateRentPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenantID, err := snowflake.ParseString(req.TenantID)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rentPaymentSvc.Initiate(c.Request.Context(), rentdomain.InitiateRequest{
		TenantID:    tenantID,
		Amount:      strings.TrimSpace(req.Amount),
		PaymentType: ledgerdomain.PaymentType(req.PaymentType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) VerifyRentPayment(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("merchant_order_id"))
	if orderID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.rentPaymentSvc.VerifyByOrderID(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, result)
}

func (s *Server) GetOutstandingBalance(c *gin.Context) {
	tenantID, err := snowflake.ParseString(c.Param("tenant_id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	balance, err := s.rentPaymentSvc.Outstanding(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, balance)
}
