// Package supervisor keeps exactly one backend server process alive for the
// lifetime of the host.
//
// A Supervisor resolves the interpreter and script for the current mode and
// platform, launches the child in its own process group, forwards every output
// chunk to the structured logger, and restarts the child after a crash
// according to the configured RestartPolicy. Clean exits (status 0) are left
// alone. Terminate is fire-and-forget; Stop waits for the child and escalates
// to a forced kill after the grace period.
//
// A file lock in the state directory keeps a second host from launching its
// own backend.
package supervisor
