// Package preflight provides readiness checks for the pieces ytdesk depends
// on: the Python interpreter and backend script, FFmpeg, the downloads and
// state directories, and a reachable backend.
//
// These checks run in two contexts:
//   - `ytdesk status` renders every result as a table.
//   - `ytdesk run` calls RunAll before starting the supervisor and logs
//     failures, so a missing interpreter shows up before the first crash loop.
//
// The backend reachability check is skipped when no prober is supplied.
package preflight
