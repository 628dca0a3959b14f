package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	minCheckoutExpiry = 300 * time.Second
	maxCheckoutExpiry = 3600 * time.Second
)

// NewMerchantOrderID builds a gateway-facing order id of the form
// PREFIX_{unix_ts}_{random8}. The random suffix keeps ids unique when
// two orders land on the same second.
func NewMerchantOrderID(prefix string, now time.Time) string {
	random8 := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s_%d_%s", prefix, now.Unix(), random8)
}

// ClampCheckoutExpiry bounds a requested checkout lifetime to the
// gateway's accepted range of 300 to 3600 seconds.
func ClampCheckoutExpiry(d time.Duration) time.Duration {
	if d < minCheckoutExpiry {
		return minCheckoutExpiry
	}
	if d > maxCheckoutExpiry {
		return maxCheckoutExpiry
	}
	return d
}
