// Package logging assembles structured slog loggers and formatting helpers
// used across the conversion pipeline.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and provides a no-op logger for tests and wiring code that
// cannot fail. The ProgressSampler suppresses repetitive progress records
// so long renders stay readable in log files.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
