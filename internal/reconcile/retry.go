package reconcile

import (
	"context"
	"errors"
	"time"

	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
)

const maxQueryRetries = 3

// Sleeper abstracts time.Sleep so tests run without waiting.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	return errors.Is(err, gatewaydomain.ErrRateLimited) ||
		errors.Is(err, gatewaydomain.ErrGatewayTimeout)
}

// queryWithRetry runs the status query, retrying rate-limit and timeout
// failures up to three times with 1s, 2s, 4s pauses. Any other error
// returns immediately.
func queryWithRetry(ctx context.Context, sleeper Sleeper, query func(context.Context) (*gatewaydomain.OrderStatus, error)) (*gatewaydomain.OrderStatus, error) {
	var lastErr error
	delay := time.Second
	for attempt := 0; ; attempt++ {
		status, err := query(ctx)
		if err == nil {
			return status, nil
		}
		if !retryable(err) || attempt >= maxQueryRetries {
			return nil, err
		}
		lastErr = err
		if serr := sleeper.Sleep(ctx, delay); serr != nil {
			return nil, errors.Join(serr, lastErr)
		}
		delay *= 2
	}
}
