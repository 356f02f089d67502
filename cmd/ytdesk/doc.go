// Package main hosts the ytdesk entrypoint and command graph.
//
// `ytdesk run` is the desktop host: it supervises the Python backend, opens
// the window (terminal or system browser) and quits when the window closes.
// The remaining commands talk to the backend directly for scripting and
// troubleshooting: metadata lookups, downloads, connectivity probes,
// preflight status, download history, and the session log archive.
//
// Keep this package thin. Behavior belongs in the internal packages; commands
// resolve configuration, build the pieces, and render results.
package main
