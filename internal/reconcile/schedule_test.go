package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckIntervalBrackets(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want time.Duration
	}{
		{20 * time.Second, 3 * time.Second},
		{50 * time.Second, 3 * time.Second},
		{51 * time.Second, 6 * time.Second},
		{110 * time.Second, 6 * time.Second},
		{111 * time.Second, 10 * time.Second},
		{170 * time.Second, 10 * time.Second},
		{171 * time.Second, 30 * time.Second},
		{230 * time.Second, 30 * time.Second},
		{231 * time.Second, 60 * time.Second},
		{2 * time.Hour, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, checkInterval(tt.age), "age %s", tt.age)
	}
}

func TestCheckIntervalMonotonic(t *testing.T) {
	prev := checkInterval(0)
	for age := time.Second; age <= 300*time.Second; age += time.Second {
		cur := checkInterval(age)
		assert.GreaterOrEqual(t, cur, prev, "interval must never shrink as age grows (age %s)", age)
		prev = cur
	}
}

func TestDueHonorsMinAge(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-19 * time.Second)
	assert.False(t, due(created, created, now))

	created = now.Add(-21 * time.Second)
	assert.True(t, due(created, created, now))
}

func TestDueMeasuresAgainstLastUpdate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-40 * time.Second)

	// Checked one second ago: 3s interval not yet elapsed.
	assert.False(t, due(created, now.Add(-time.Second), now))
	// Checked four seconds ago: due again.
	assert.True(t, due(created, now.Add(-4*time.Second), now))
}
