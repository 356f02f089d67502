// Package logging builds the slog loggers ytdesk components share.
//
// A session logger writes a readable console stream and, when logging.dir is
// set, a JSON file per session. Every record can also be published to a
// StreamHub, whose sinks include the EventArchive that `ytdesk logs` reads.
// Supervisor output is tagged with the backend generation and stream so the
// lines of one process lifetime can be told apart.
package logging
