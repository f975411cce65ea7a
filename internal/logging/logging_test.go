package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("loud", "console")
	assert.Error(t, err)
}

func TestWithOperation_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := WithOperation(zap.New(core), "faceapi.verify", "req-1")

	logger.Info("done")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "faceapi.verify", fields["operation"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestWithOperation_OmitsEmptyRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	WithOperation(zap.New(core), "capture.start", "").Info("x")

	_, ok := logs.All()[0].ContextMap()["request_id"]
	assert.False(t, ok)
}

func TestOperationError(t *testing.T) {
	base := errors.New("boom")

	err := NewOperationError("faceapi.enroll", "abc", base)
	assert.Equal(t, "faceapi.enroll (request_id=abc): boom", err.Error())
	assert.ErrorIs(t, err, base)

	assert.Equal(t, "faceapi.enroll: boom", NewOperationError("faceapi.enroll", "", base).Error())
	assert.NoError(t, NewOperationError("faceapi.enroll", "abc", nil))
}
