package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	subscriptiondomain "github.com/zeltonlabs/zelton/internal/subscription/domain"
)

type initiateSubscriptionRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	PlanID  string `json:"plan_id" binding:"required"`
	Period  string `json:"period"`
}

func (r initiateSubscriptionRequest) toDomain() (subscriptiondomain.InitiateRequest, error) {
	ownerID, err := snowflake.ParseString(r.OwnerID)
	if err != nil {
		return subscriptiondomain.InitiateRequest{}, invalidRequestError()
	}
	planID, err := snowflake.ParseString(r.PlanID)
	if err != nil {
		return subscriptiondomain.InitiateRequest{}, invalidRequestError()
	}
	return subscriptiondomain.InitiateRequest{
		OwnerID: ownerID,
		PlanID:  planID,
		Period:  ledgerdomain.SubscriptionPeriod(r.Period),
	}, nil
}

func (s *Server) InitiateSubscriptionPayment(c *gin.Context) {
	var req initiateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dreq, err := req.toDomain()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.InitiatePayment(c.Request.Context(), dreq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) InitiateSubscriptionUpgrade(c *gin.Context) {
	var req initiateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dreq, err := req.toDomain()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.InitiateUpgrade(c.Request.Context(), dreq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) VerifySubscriptionPayment(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("merchant_order_id"))
	if orderID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.subscriptionSvc.VerifyByOrderID(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, payment)
}

func (s *Server) ListPricingPlans(c *gin.Context) {
	plans, err := s.subscriptionSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, plans)
}
