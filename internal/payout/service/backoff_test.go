package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Backoff(1))
	assert.Equal(t, 15*time.Minute, Backoff(2))
	assert.Equal(t, 45*time.Minute, Backoff(3))
}

func TestBackoffClampsBelowOne(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Backoff(0))
	assert.Equal(t, 5*time.Minute, Backoff(-3))
}
