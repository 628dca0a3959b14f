package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMerchantOrderID(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	id := NewMerchantOrderID("RENT", now)

	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "RENT", parts[0])
	assert.Equal(t, "1773480413", parts[1])
	assert.Len(t, parts[2], 8)
	assert.Equal(t, strings.ToUpper(parts[2]), parts[2])
}

func TestNewMerchantOrderIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewMerchantOrderID("SUB", now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestClampCheckoutExpiry(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"below floor", 10 * time.Second, 300 * time.Second},
		{"at floor", 300 * time.Second, 300 * time.Second},
		{"in range", 1200 * time.Second, 1200 * time.Second},
		{"at ceiling", 3600 * time.Second, 3600 * time.Second},
		{"above ceiling", 2 * time.Hour, 3600 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampCheckoutExpiry(tt.in))
		})
	}
}
