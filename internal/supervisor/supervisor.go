package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ytdesk/internal/config"
	"ytdesk/internal/logging"
)

// State is the supervisor lifecycle state.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateCleanExit  State = "clean_exit"
	StateCrashExit  State = "crash_exit"
	StateStopped    State = "stopped"
	StateFailed     State = "failed"
)

// stableUptime resets the consecutive-crash counter for processes that ran
// at least this long before exiting.
const stableUptime = 10 * time.Second

// ErrAlreadyRunning is returned by Start when the supervisor or another host
// already owns the backend.
var ErrAlreadyRunning = errors.New("backend supervisor already running")

// Status is a snapshot of the supervisor.
type Status struct {
	State      State
	PID        int
	Generation string
	Restarts   int
	LastExit   *ExitStatus
	StartedAt  time.Time
	Command    Command
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithStarter injects a custom process starter (primarily for tests).
func WithStarter(starter Starter) Option {
	return func(s *Supervisor) {
		if starter != nil {
			s.starter = starter
		}
	}
}

// WithResolver overrides interpreter and script resolution.
func WithResolver(resolver Resolver) Option {
	return func(s *Supervisor) {
		s.resolver = resolver
	}
}

// WithPolicy overrides the restart policy derived from configuration.
func WithPolicy(policy RestartPolicy) Option {
	return func(s *Supervisor) {
		s.policy = policy
	}
}

// Supervisor owns the single backend process handle.
type Supervisor struct {
	cfg      *config.Config
	logger   *slog.Logger
	starter  Starter
	resolver Resolver
	policy   RestartPolicy
	grace    time.Duration
	lock     *flock.Flock
	pidPath  string

	mu         sync.Mutex
	state      State
	proc       Process
	exited     chan struct{}
	generation string
	command    Command
	startedAt  time.Time
	restarts   int
	streak     int
	lastExit   *ExitStatus
	timer      *time.Timer
	stopping   bool
	locked     bool
}

// New constructs a supervisor for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("supervisor requires configuration")
	}
	grace := time.Duration(cfg.Backend.StopGraceSeconds) * time.Second
	if grace <= 0 {
		grace = 5 * time.Second
	}
	s := &Supervisor{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "supervisor"),
		starter:  ExecStarter{},
		resolver: DefaultResolver(),
		policy:   PolicyFromConfig(cfg.Backend),
		grace:    grace,
		lock:     flock.New(cfg.LockPath()),
		pidPath:  cfg.PIDPath(),
		state:    StateNotStarted,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start acquires the single-instance lock and launches the backend. It
// returns once the process has been spawned; it does not wait for the
// backend to listen.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStarting, StateRunning, StateCrashExit:
		return ErrAlreadyRunning
	}
	if !s.locked {
		if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire backend lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: lock %s held by another ytdesk instance", ErrAlreadyRunning, s.lock.Path())
		}
		s.locked = true
	}

	s.stopping = false
	s.streak = 0
	if err := s.launchLocked(); err != nil {
		s.state = StateNotStarted
		s.releaseLocked()
		return err
	}
	return nil
}

func (s *Supervisor) launchLocked() error {
	s.state = StateStarting
	cmd, err := s.resolver.Resolve(s.cfg)
	if err != nil {
		return fmt.Errorf("resolve backend command: %w", err)
	}
	if cmd.Fallback {
		s.logger.Info("bundled interpreter not found; using system interpreter",
			logging.String("interpreter", cmd.Interpreter),
			logging.String(logging.FieldEventType, "backend_interpreter_fallback"),
		)
	}
	if err := markExecutable(cmd.Script); err != nil {
		logging.WarnWithContext(s.logger, "could not mark backend script executable", "backend_chmod_failed",
			logging.String("script", cmd.Script),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the script exists and is owned by this user"),
			logging.String(logging.FieldImpact, "launch continues; the interpreter does not need the executable bit"),
		)
	}

	generation := uuid.NewString()
	stdout := newChunkWriter(s.logger, "stdout", generation)
	stderr := newChunkWriter(s.logger, "stderr", generation)
	proc, err := s.starter.Start(cmd, stdout, stderr)
	if err != nil {
		return err
	}

	exited := make(chan struct{})
	s.proc = proc
	s.exited = exited
	s.generation = generation
	s.command = cmd
	s.startedAt = time.Now()
	s.state = StateRunning
	s.writePIDLocked(proc.Pid())

	s.logger.Info("backend started",
		logging.Int("pid", proc.Pid()),
		logging.String("interpreter", cmd.Interpreter),
		logging.String("script", cmd.Script),
		logging.String(logging.FieldGeneration, generation),
		logging.Int("restart_count", s.restarts),
		logging.String(logging.FieldEventType, "backend_started"),
	)

	go s.wait(proc, exited)
	return nil
}

func (s *Supervisor) wait(proc Process, exited chan struct{}) {
	status := proc.Wait()
	s.handleExit(proc, status)
	close(exited)
}

func (s *Supervisor) handleExit(proc Process, status ExitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != proc {
		return
	}
	uptime := time.Since(s.startedAt)
	s.proc = nil
	s.lastExit = &status
	s.removePIDLocked()

	attrs := []logging.Attr{
		logging.String(logging.FieldGeneration, s.generation),
		logging.Int("exit_code", status.Code),
		logging.Duration("elapsed", uptime),
	}
	if status.Signaled {
		attrs = append(attrs, logging.String("signal", status.Signal))
	}

	if s.stopping {
		s.state = StateStopped
		s.releaseLocked()
		s.logger.Info("backend stopped", logging.Args(append(attrs, logging.String(logging.FieldEventType, "backend_stopped"))...)...)
		return
	}
	if status.Clean() {
		s.state = StateCleanExit
		s.logger.Info("backend exited cleanly; not restarting", logging.Args(append(attrs, logging.String(logging.FieldEventType, "backend_exit_clean"))...)...)
		return
	}

	s.state = StateCrashExit
	if uptime >= stableUptime {
		s.streak = 0
	}
	logging.ErrorWithContext(s.logger, "backend crashed", "backend_crash",
		append(attrs,
			logging.String("error_message", status.String()),
			logging.String(logging.FieldErrorHint, "check the backend stderr lines above for a traceback"),
		)...,
	)
	s.scheduleRestartLocked()
}

// scheduleRestartLocked arms exactly one restart timer, or moves to Failed
// when the policy cap is reached.
func (s *Supervisor) scheduleRestartLocked() {
	delay, ok := s.policy.Next(s.streak)
	if !ok {
		s.state = StateFailed
		s.releaseLocked()
		logging.ErrorWithContext(s.logger, "backend restart limit reached; giving up", "backend_failed",
			logging.Int("restart_count", s.restarts),
			logging.String(logging.FieldErrorHint, "fix the backend and run ytdesk again, or raise backend.max_restarts"),
		)
		return
	}
	s.streak++
	s.logger.Info("backend restart scheduled",
		logging.Duration("restart_delay", delay),
		logging.Int("restart_count", s.restarts+1),
		logging.String(logging.FieldEventType, "backend_restart_scheduled"),
	)
	s.timer = time.AfterFunc(delay, s.restart)
}

func (s *Supervisor) restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCrashExit || s.stopping {
		return
	}
	s.timer = nil
	s.restarts++
	if err := s.launchLocked(); err != nil {
		status := ExitStatus{Code: -1, Err: err}
		s.lastExit = &status
		s.state = StateCrashExit
		logging.ErrorWithContext(s.logger, "backend restart failed", "backend_restart_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend.interpreter and that python is installed"),
		)
		s.scheduleRestartLocked()
	}
}

// Terminate sends the termination signal to the backend, cancels any pending
// restart, and returns immediately.
func (s *Supervisor) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked()
}

func (s *Supervisor) terminateLocked() {
	s.stopping = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.proc == nil {
		if s.state != StateNotStarted {
			s.state = StateStopped
		}
		s.releaseLocked()
		return
	}
	if err := s.proc.Terminate(); err != nil {
		s.logger.Debug("terminate signal failed", logging.Error(err))
	}
}

// Stop terminates the backend and waits for it to exit. After the grace
// period the process is killed. The returned error is non-nil only if ctx
// ends before the process is gone.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	exited := s.exited
	s.terminateLocked()
	s.mu.Unlock()

	if proc == nil {
		return nil
	}

	grace := time.NewTimer(s.grace)
	defer grace.Stop()
	select {
	case <-exited:
		return nil
	case <-grace.C:
		logging.WarnWithContext(s.logger, "backend did not exit within grace period; killing", "backend_kill",
			logging.Duration("elapsed", s.grace),
			logging.String(logging.FieldImpact, "in-flight downloads are aborted"),
		)
		if err := proc.Kill(); err != nil {
			s.logger.Debug("kill failed", logging.Error(err))
		}
	case <-ctx.Done():
		_ = proc.Kill()
		return ctx.Err()
	}

	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the supervisor.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		State:      s.state,
		Generation: s.generation,
		Restarts:   s.restarts,
		StartedAt:  s.startedAt,
		Command:    s.command,
	}
	if s.proc != nil {
		status.PID = s.proc.Pid()
	}
	if s.lastExit != nil {
		exit := *s.lastExit
		status.LastExit = &exit
	}
	return status
}

func (s *Supervisor) releaseLocked() {
	if !s.locked {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release backend lock", logging.Error(err))
	}
	s.locked = false
}

func (s *Supervisor) writePIDLocked(pid int) {
	if pid <= 0 || s.pidPath == "" {
		return
	}
	if err := os.WriteFile(s.pidPath, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		s.logger.Debug("write pid file failed", logging.String("pid_path", s.pidPath), logging.Error(err))
	}
}

func (s *Supervisor) removePIDLocked() {
	if s.pidPath == "" {
		return
	}
	if err := os.Remove(s.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("remove pid file failed", logging.String("pid_path", s.pidPath), logging.Error(err))
	}
}
