package database

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// retryConfig mirrors the teacher's dispatcher retry manager's
// exponential-backoff shape (internal/dispatcher/retry_manager.go),
// applied here to a single SQL statement instead of a log batch: a
// busy or locked SQLite file (SQLITE_BUSY, SQLITE_LOCKED) is the one
// transient failure this engine expects from its black-box driver.
type retryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		MaxRetries:   5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// withRetry runs op, retrying on a busy-database error up to
// cfg.MaxRetries times with exponential backoff, capped at
// cfg.MaxDelay. It gives up immediately if ctx is done or op returns a
// non-retryable error.
func withRetry(ctx context.Context, logger *logrus.Logger, cfg retryConfig, op func() error) error {
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}
		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err,
		}).Debug("retrying sqlite statement after busy error")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		delay = time.Duration(math.Min(float64(cfg.MaxDelay), float64(delay)*cfg.Multiplier))
	}
	return lastErr
}

// isRetryable reports whether err looks like a transient SQLite
// busy/locked condition. modernc.org/sqlite surfaces these as plain
// errors whose message carries the SQLite result text, so this is a
// substring match rather than an errors.Is chain.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	for _, sub := range []string{"SQLITE_BUSY", "database is locked", "SQLITE_LOCKED"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
