package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRetryDelay(t *testing.T) {
	assert.Equal(t, 30*time.Second, taskRetryDelay(1, nil, nil))
	assert.Equal(t, 90*time.Second, taskRetryDelay(3, nil, nil))
	// Capped so a flapping dependency cannot push retries out indefinitely.
	assert.Equal(t, 10*time.Minute, taskRetryDelay(100, nil, nil))
}

func TestIsTaskFailure(t *testing.T) {
	assert.True(t, isTaskFailure(assert.AnError))
	assert.False(t, isTaskFailure(context.Canceled))
}
