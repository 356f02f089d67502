package preflight

import (
	"context"

	"ytdesk/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Prober reports backend reachability. backend.Client satisfies it.
type Prober interface {
	Probe(ctx context.Context) (bool, error)
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, prober Prober) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDependencies(cfg)...)
	results = append(results, CheckDirectoryAccess("Downloads directory", cfg.Downloads.Dir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.App.StateDir))
	results = append(results, CheckSupervisor(cfg))

	if prober != nil {
		results = append(results, CheckBackend(ctx, prober, cfg.Backend.BaseURL))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
