// Package logging provides structured logging utilities for tickmcp.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create the process logger once, on stderr:
//
//	logger, err := logging.New("info", os.Stderr)
//
// Attach standard attributes:
//
//	logger.Info("tool finished",
//	    logging.Tool("list_tasks"),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
// Access tokens are never logged directly; use SanitizeToken.
package logging
