package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"ytdesk/internal/config"
	"ytdesk/internal/deps"
	"ytdesk/internal/supervisor"
)

const backendProbeTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDependencies resolves the backend command for cfg and checks the
// interpreter, the script, and FFmpeg.
func CheckDependencies(cfg *config.Config) []Result {
	cmd, err := supervisor.DefaultResolver().Resolve(cfg)
	if err != nil {
		return []Result{{Name: "Backend command", Detail: err.Error()}}
	}
	statuses := []deps.Status{
		deps.CheckInterpreter(cmd.Interpreter, cmd.Fallback),
		deps.CheckScript(cmd.Script),
		deps.CheckFFmpeg(cmd.Interpreter),
	}
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		results = append(results, fromStatus(status))
	}
	return results
}

func fromStatus(status deps.Status) Result {
	detail := status.Command
	if status.Detail != "" {
		if detail != "" {
			detail = fmt.Sprintf("%s (%s)", detail, status.Detail)
		} else {
			detail = status.Detail
		}
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}

// CheckBackend probes the backend with a bounded timeout.
func CheckBackend(ctx context.Context, prober Prober, baseURL string) Result {
	const name = "Backend API"
	checkCtx, cancel := context.WithTimeout(ctx, backendProbeTimeout)
	defer cancel()

	connected, err := prober.Probe(checkCtx)
	if connected {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", baseURL)}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", baseURL, summarizeProbeError(err))}
}

// summarizeProbeError produces a human-readable summary for probe failures.
func summarizeProbeError(err error) string {
	if err == nil {
		return "unreachable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (backend unreachable)"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection refused (is the backend running?)"
	}
	return err.Error()
}
