package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent(t *testing.T) {
	src := SourceFunc(func() (string, error) { return "copied text", nil })

	got, err := Content(context.Background(), src, 0)
	require.NoError(t, err)
	assert.Equal(t, "// Notes:\n\ncopied text", got)
}

func TestContent_Empty(t *testing.T) {
	src := SourceFunc(func() (string, error) { return "", nil })

	got, err := Content(context.Background(), src, 0)
	require.NoError(t, err)
	assert.Equal(t, Header, got)
}

func TestContent_ReadError(t *testing.T) {
	boom := errors.New("no clipboard utility")
	src := SourceFunc(func() (string, error) { return "", boom })

	got, err := Content(context.Background(), src, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Header, got)
}

func TestContent_WaitsForDelay(t *testing.T) {
	var readAt time.Time
	src := SourceFunc(func() (string, error) {
		readAt = time.Now()
		return "x", nil
	})

	start := time.Now()
	_, err := Content(context.Background(), src, 30*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, readAt.Sub(start), 30*time.Millisecond)
}

func TestContent_Cancelled(t *testing.T) {
	read := false
	src := SourceFunc(func() (string, error) {
		read = true
		return "x", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Content(ctx, src, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Header, got)
	assert.False(t, read)
}
