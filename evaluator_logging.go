package persist

import (
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes a rule evaluation for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Scope    string
	Store    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogEvaluatorLogger writes evaluation events to logger at debug level.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []any{
			"engine", event.Engine,
			"expr", event.Expr,
			"scope", event.Scope,
			"store", event.Store,
			"duration", event.Duration,
		}
		if event.Err != nil {
			attrs = append(attrs, "error", event.Err)
		}
		logger.Debug("persist: rule evaluated", attrs...)
	})
}

// WithEvaluatorLogger attaches an evaluator logger to the plugin.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *pluginConfig) {
		if logger == nil {
			cfg.evalLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evalLogger = logger
	}
}
