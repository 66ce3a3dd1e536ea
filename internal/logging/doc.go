// Package logging assembles the structured slog loggers used across goldmap.
//
// It owns the console and JSON handlers, the per-run log file, and the
// standard field keys so fetch, resolution and runner output share one shape.
// Context helpers tag records with the active run ID. A no-op logger is
// provided for tests and for components constructed without one.
package logging
