package reconcile

import "time"

// MinAge is how long a transaction must exist before it is first
// reconciled, giving the gateway time to become consistent.
const MinAge = 20 * time.Second

// checkInterval returns how long to wait between status checks for a
// transaction of the given age. Young transactions are polled tightly;
// the interval widens as they grow stale.
func checkInterval(age time.Duration) time.Duration {
	switch {
	case age <= 50*time.Second:
		return 3 * time.Second
	case age <= 110*time.Second:
		return 6 * time.Second
	case age <= 170*time.Second:
		return 10 * time.Second
	case age <= 230*time.Second:
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}

// due reports whether a transaction created at createdAt and last
// touched at updatedAt should be checked now. The interval is measured
// against the last update, so a fresh attempt resets the wait.
func due(createdAt, updatedAt, now time.Time) bool {
	age := now.Sub(createdAt)
	if age < MinAge {
		return false
	}
	return now.Sub(updatedAt) >= checkInterval(age)
}
