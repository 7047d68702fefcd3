package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func TestWithRetrySucceedsWithoutRetryingOnNil(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), testRetryLogger(), defaultRetryConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryGivesUpOnNonRetryableError(t *testing.T) {
	wantErr := errors.New("syntax error near SELECT")
	calls := 0
	err := withRetry(context.Background(), testRetryLogger(), defaultRetryConfig(), func() error {
		calls++
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestWithRetryRetriesBusyErrorThenSucceeds(t *testing.T) {
	cfg := defaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond

	calls := 0
	err := withRetry(context.Background(), testRetryLogger(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("SQLITE_BUSY: database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsRetriesAndReturnsLastError(t *testing.T) {
	cfg := defaultRetryConfig()
	cfg.MaxRetries = 2
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond

	calls := 0
	busyErr := errors.New("database is locked")
	err := withRetry(context.Background(), testRetryLogger(), cfg, func() error {
		calls++
		return busyErr
	})
	assert.Equal(t, busyErr, err)
	assert.Equal(t, cfg.MaxRetries+1, calls)
}

func TestWithRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, testRetryLogger(), defaultRetryConfig(), func() error {
		t.Fatal("op must not be called once the context is already done")
		return nil
	})
	assert.Equal(t, context.Canceled, err)
}

func TestIsRetryableMatchesKnownSubstrings(t *testing.T) {
	assert.True(t, isRetryable(errors.New("SQLITE_BUSY: database is locked")))
	assert.True(t, isRetryable(errors.New("database is locked")))
	assert.True(t, isRetryable(errors.New("SQLITE_LOCKED (6)")))
	assert.False(t, isRetryable(errors.New("no such table: rocpd_region")))
	assert.False(t, isRetryable(nil))
}

func TestIsRetryableRejectsContextErrors(t *testing.T) {
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.False(t, isRetryable(context.Canceled))
}
