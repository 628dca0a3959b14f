package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) RetryPayout(c *gin.Context) {
	payoutID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payout, err := s.payoutSvc.Retry(c.Request.Context(), payoutID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, payout)
}

func (s *Server) GetPayoutStatus(c *gin.Context) {
	payoutID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payout, err := s.payoutSvc.SyncTransferStatus(c.Request.Context(), payoutID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, payout)
}

func (s *Server) GetPayoutByPayment(c *gin.Context) {
	paymentID, err := snowflake.ParseString(c.Param("payment_id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payout, err := s.payoutSvc.Status(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, payout)
}
