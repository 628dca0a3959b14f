package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PhonePeWebhook ingests gateway callbacks. The raw body is needed
// as-is for signature validation, so no binding here.
func (s *Server) PhonePeWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.webhookSvc.Process(c.Request.Context(), c.GetHeader("Authorization"), body); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
