package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInitializesDefault(t *testing.T) {
	logger := Get()
	require.NotNil(t, logger)

	// Repeated calls return the same instance
	assert.Same(t, logger, Get())
}

func TestInitInvalidLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, IndexerIDKey, "idx-1")

	logger := WithContext(ctx)
	require.NotNil(t, logger)

	// Must not panic when the context carries no values
	assert.NotNil(t, WithContext(context.Background()))
}
