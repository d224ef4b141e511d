// Package sideeffect describes the outcome of best-effort work that runs after
// a transaction commits. Callers log a Result; they never return it as an error.
package sideeffect

import (
	"log/slog"
	"time"
)

type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Run times fn and wraps its error.
func Run(name string, fn func() error) Result {
	start := time.Now()
	err := fn()
	return Result{Name: name, Err: err, Duration: time.Since(start)}
}

// Log writes r at warn level on failure and debug level otherwise.
func Log(l *slog.Logger, r Result, attrs ...any) {
	attrs = append(attrs, "side_effect", r.Name, "duration_ms", r.Duration.Milliseconds())
	if r.Err != nil {
		l.Warn("side effect failed", append(attrs, "error", r.Err)...)
		return
	}
	l.Debug("side effect completed", attrs...)
}
