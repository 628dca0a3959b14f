package service

import "time"

// Backoff returns the delay before retry number attempt (1-based):
// 5, 15, 45 minutes. Exponential with base 5 minutes and factor 3.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 5 * time.Minute
	for i := 1; i < attempt; i++ {
		d *= 3
	}
	return d
}
