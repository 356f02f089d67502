// Package backend is the HTTP client for the supervised download service.
//
// The client speaks the two JSON endpoints exposed by the backend
// (/api/info and /api/download), converts the raw format list into the
// quality options shown to the user, and reports download progress as
// bytes arrive. Errors are tagged with the services markers so callers can
// tell input validation, unreachable backend, and backend-reported failures
// apart without parsing messages.
package backend
