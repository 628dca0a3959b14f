package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestQueryWithRetrySucceedsAfterRateLimit(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	status, err := queryWithRetry(context.Background(), sleeper, func(context.Context) (*gatewaydomain.OrderStatus, error) {
		calls++
		if calls < 3 {
			return nil, gatewaydomain.ErrRateLimited
		}
		return &gatewaydomain.OrderStatus{State: gatewaydomain.OrderStateCompleted}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, gatewaydomain.OrderStateCompleted, status.State)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
}

func TestQueryWithRetryExhaustsAfterThreeRetries(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	_, err := queryWithRetry(context.Background(), sleeper, func(context.Context) (*gatewaydomain.OrderStatus, error) {
		calls++
		return nil, gatewaydomain.ErrGatewayTimeout
	})
	require.ErrorIs(t, err, gatewaydomain.ErrGatewayTimeout)
	assert.Equal(t, 4, calls, "one initial attempt plus three retries")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.delays)
}

func TestQueryWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	boom := errors.New("http 500")

	_, err := queryWithRetry(context.Background(), sleeper, func(context.Context) (*gatewaydomain.OrderStatus, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestQueryWithRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := queryWithRetry(ctx, realSleeper{}, func(context.Context) (*gatewaydomain.OrderStatus, error) {
		return nil, gatewaydomain.ErrRateLimited
	})
	assert.ErrorIs(t, err, context.Canceled)
}
