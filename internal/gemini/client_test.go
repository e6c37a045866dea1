package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestWaitActiveReturnsOnceProcessed(t *testing.T) {
	polls := 0
	file := &genai.File{Name: "files/abc", State: genai.FileStateProcessing}

	got, err := waitActive(context.Background(), file, time.Millisecond, func(name string) (*genai.File, error) {
		polls++
		if polls < 3 {
			return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
		}
		return &genai.File{Name: name, State: genai.FileStateActive}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, genai.FileStateActive, got.State)
	assert.Equal(t, 3, polls)
}

func TestWaitActiveGivesUpOnStuckFile(t *testing.T) {
	polls := 0
	file := &genai.File{Name: "files/abc", State: genai.FileStateProcessing}

	_, err := waitActive(context.Background(), file, time.Millisecond, func(name string) (*genai.File, error) {
		polls++
		return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still processing")
	assert.Equal(t, maxPollAttempts, polls)
}

func TestWaitActiveRejectsFailedState(t *testing.T) {
	file := &genai.File{Name: "files/abc", State: genai.FileStateFailed}

	_, err := waitActive(context.Background(), file, time.Millisecond, func(name string) (*genai.File, error) {
		t.Fatal("a failed file must not be polled")
		return nil, nil
	})
	assert.Error(t, err)
}

func TestWaitActiveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	file := &genai.File{Name: "files/abc", State: genai.FileStateProcessing}

	_, err := waitActive(ctx, file, time.Minute, func(name string) (*genai.File, error) {
		return file, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
