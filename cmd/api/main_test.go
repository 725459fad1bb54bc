package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUploadWriteTimeoutCoversBothRemoteCalls(t *testing.T) {
	for _, client := range []time.Duration{0, 30 * time.Second, 5 * time.Minute} {
		assert.Greater(t, uploadWriteTimeout(client), 2*client)
	}
	assert.Equal(t, 15*time.Minute, uploadWriteTimeout(5*time.Minute))
}
