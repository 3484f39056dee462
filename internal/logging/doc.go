// Package logging builds the slog loggers used by ticketsmith.
//
// Console output is a single human-readable line per record; JSON output
// uses lower-case levels and RFC3339 timestamps. When a log directory is
// configured every record is also appended as JSON to ticketsmith.log.
// Context helpers tag records with the run, finding, and batch position
// carried on a context.Context.
package logging
