package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	"github.com/zeltonlabs/zelton/pkg/money"
)

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

var errInvalidRequest = errors.New("invalid_request")

func invalidRequestError() error { return errInvalidRequest }

// AbortWithError translates sentinel errors into HTTP responses with a
// machine-readable error code in the body.
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledgerdomain.ErrPaymentNotFound),
		errors.Is(err, ledgerdomain.ErrTransactionNotFound),
		errors.Is(err, ledgerdomain.ErrPayoutNotFound),
		errors.Is(err, ledgerdomain.ErrPlanNotFound),
		errors.Is(err, ledgerdomain.ErrOwnerNotFound),
		errors.Is(err, ledgerdomain.ErrTenantNotFound),
		errors.Is(err, ledgerdomain.ErrOrderNotFound),
		errors.Is(err, ledgerdomain.ErrNoActiveUnit):
		return http.StatusNotFound
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, gatewaydomain.ErrInvalidCallback):
		return http.StatusBadRequest
	case errors.Is(err, ledgerdomain.ErrExceedsOutstanding),
		errors.Is(err, ledgerdomain.ErrDowngradeNotAllowed),
		errors.Is(err, ledgerdomain.ErrPlanInsufficient),
		errors.Is(err, ledgerdomain.ErrPayoutDetailsIncomplete),
		errors.Is(err, ledgerdomain.ErrPayoutNotRetryable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gatewaydomain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gatewaydomain.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, gatewaydomain.ErrCheckoutRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
