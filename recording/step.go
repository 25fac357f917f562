// Package recording keeps the reproducible trail of browser tool calls: one
// human-readable trace line and one Go/rod statement per step.
//
// Recording never influences a tool outcome. Store and LogRecorder swallow
// their own failures after logging them.
package recording

import (
	"context"
	"log/slog"
	"time"
)

// Step is one recorded tool call.
type Step struct {
	ID        string
	SessionID string
	Seq       int64
	Tool      string
	// Trace is the human-readable description ("Assert that the page
	// contains text \"Submit\"").
	Trace string
	// Code is an equivalent Go/rod statement.
	Code      string
	Result    string
	Duration  time.Duration
	CreatedAt time.Time
}

// Recorder receives steps.
type Recorder interface {
	Record(ctx context.Context, step Step)
}

// LogRecorder writes each step as a structured log line.
type LogRecorder struct {
	Logger *slog.Logger
}

// Record implements Recorder.
func (r LogRecorder) Record(ctx context.Context, step Step) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "recording: step",
		"session_id", step.SessionID,
		"tool", step.Tool,
		"trace", step.Trace,
		"code", step.Code,
		"result", step.Result,
		"duration", step.Duration,
	)
}

// Multi fans a step out to several recorders in order.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, step Step) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, step)
		}
	}
}
