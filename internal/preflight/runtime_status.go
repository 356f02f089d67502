package preflight

import (
	"fmt"

	"ytdesk/internal/config"
	"ytdesk/internal/supervisor"
)

// CheckSupervisor reports whether another ytdesk host currently owns the
// backend. It is informational: a running host is not a failure.
func CheckSupervisor(cfg *config.Config) Result {
	const name = "Backend supervisor"

	inspection, err := supervisor.Inspect(cfg)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: err.Error()}
	}
	if !inspection.Running {
		return Result{Name: name, Passed: true, Detail: "not running"}
	}
	if inspection.PID > 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("running (backend pid %d)", inspection.PID)}
	}
	return Result{Name: name, Passed: true, Detail: "running"}
}
