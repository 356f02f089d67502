// Package services defines shared utilities consumed by the supervisor, the
// backend client, and the shell.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, backend generations, and
//     operation names for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation, transport, application) with errors.Is.
//
// Use these helpers when wiring new code paths so error handling and
// observability stay uniform across the host.
package services
