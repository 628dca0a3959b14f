package clock

import "time"

// Clock abstracts wall-clock time so reconciliation and payout retry
// scheduling can be tested without sleeping.
type Clock interface {
	Now() time.Time
}
