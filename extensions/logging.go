package extensions

import (
	"context"
	"log/slog"
	"time"

	pipeline "github.com/ambient-fn/pipeline-go"
)

// LoggingExtension logs run lifecycle events through an injected
// slog.Handler.
//
// Usage:
//
//	// Human-readable formatted output
//	ext := extensions.NewLoggingExtension(extensions.NewHumanHandler(os.Stdout, slog.LevelInfo))
//
//	// Structured JSON logging
//	ext := extensions.NewLoggingExtension(slog.NewJSONHandler(os.Stdout, nil))
//
//	// Silent (for testing)
//	ext := extensions.NewLoggingExtension(extensions.NewSilentHandler())
type LoggingExtension struct {
	pipeline.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension backed by the given
// slog.Handler.
func NewLoggingExtension(logHandler slog.Handler) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: pipeline.NewBaseExtension("logging"),
		logger:        slog.New(logHandler),
	}
}

// Wrap times the whole chain of one run
func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *pipeline.Operation) (any, error) {
	start := time.Now()
	e.logger.Info("run starting",
		"kind", string(op.Kind),
		"pipeline", op.Pipeline,
		"run_id", op.RunID,
	)

	result, err := next()

	duration := time.Since(start)
	if err != nil {
		e.logger.Error("run failed",
			"kind", string(op.Kind),
			"pipeline", op.Pipeline,
			"run_id", op.RunID,
			"duration", duration,
			"error", err.Error(),
		)
	} else {
		e.logger.Info("run completed",
			"kind", string(op.Kind),
			"pipeline", op.Pipeline,
			"run_id", op.RunID,
			"duration", duration,
		)
	}

	return result, err
}

// OnPanic logs the captured stack at ERROR level
func (e *LoggingExtension) OnPanic(s *pipeline.Scope, recovered any, stack []byte) error {
	e.logger.Error("middleware panic",
		"pipeline", s.PipelineName(),
		"run_id", s.ID(),
		"panic", recovered,
		"stack_trace", string(stack),
	)
	return nil // Don't suppress the error
}
