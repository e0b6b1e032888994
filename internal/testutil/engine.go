package testutil

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/modset/internal/engine"
)

// Epoch is the start time of every manual clock built here.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NewManualEngine returns an engine on a fresh manual clock with a
// discarding logger.
func NewManualEngine() (*engine.Engine, *engine.ManualTime) {
	mt := engine.NewManualTime(Epoch)
	e := engine.New(
		engine.WithTimeSource(mt),
		engine.WithLogger(DiscardLogger()),
	)
	return e, mt
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Settle runs e to quiescence and fails the test if it does not settle.
func Settle(t *testing.T, e *engine.Engine) {
	t.Helper()
	require.NoError(t, e.Settle(context.Background(), 0))
}
