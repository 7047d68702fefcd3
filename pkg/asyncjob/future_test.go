package asyncjob

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rocprofvis/datamodel/pkg/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestFutureWaitReturnsJobResult(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"))

	f := New("db.sqlite", nil, testLogger())
	f.Run(func(ctx context.Context, progress ProgressFunc) types.Result {
		return types.Success
	})

	result := f.Wait(1000)
	assert.Equal(t, types.Success, result)
}

func TestFutureWaitTimesOutAndInterrupts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"))

	f := New("db.sqlite", nil, testLogger())
	started := make(chan struct{})
	f.Run(func(ctx context.Context, progress ProgressFunc) types.Result {
		close(started)
		<-ctx.Done()
		return types.Timeout
	})

	<-started
	result := f.Wait(20)
	assert.Equal(t, types.Timeout, result)
	assert.True(t, f.Interrupted())
}

func TestFutureProgressCallbackInvoked(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"))

	var gotPercent int
	done := make(chan struct{})
	progress := func(dbPath string, percent int, status types.ProgressStatus, message string) {
		gotPercent = percent
		close(done)
	}

	f := New("db.sqlite", progress, testLogger())
	f.Run(func(ctx context.Context, p ProgressFunc) types.Result {
		p("db.sqlite", 50, types.Busy, "halfway")
		return types.Success
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("progress callback never invoked")
	}
	require.Equal(t, 50, gotPercent)
	f.Wait(1000)
}

func TestFutureCloseJoinsRunningWorker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"))

	f := New("db.sqlite", nil, testLogger())
	started := make(chan struct{})
	f.Run(func(ctx context.Context, progress ProgressFunc) types.Result {
		close(started)
		<-ctx.Done()
		return types.Timeout
	})
	<-started
	f.Close()
	assert.True(t, f.Interrupted())
}

func TestFutureRunTwiceIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"))

	f := New("db.sqlite", nil, testLogger())
	f.Run(func(ctx context.Context, progress ProgressFunc) types.Result {
		return types.Success
	})
	f.Run(func(ctx context.Context, progress ProgressFunc) types.Result {
		return types.UnknownError
	})

	assert.Equal(t, types.Success, f.Wait(1000))
}
