package supervisor

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// ExitStatus describes how a backend process ended.
type ExitStatus struct {
	Code     int
	Signaled bool
	Signal   string
	Err      error
}

// Clean reports whether the exit was an intentional stop (status 0).
func (s ExitStatus) Clean() bool {
	return s.Code == 0 && !s.Signaled && s.Err == nil
}

func (s ExitStatus) String() string {
	switch {
	case s.Signaled:
		return "signal " + s.Signal
	case s.Err != nil && s.Code < 0:
		return s.Err.Error()
	default:
		return "exit code " + strconv.Itoa(s.Code)
	}
}

// Process is a single live-or-dead handle to a backend process.
type Process interface {
	Pid() int
	// Wait blocks until the process exits. It is called exactly once.
	Wait() ExitStatus
	// Terminate asks the process to exit.
	Terminate() error
	// Kill forces the process to exit.
	Kill() error
}

// Starter launches backend processes. Tests inject fakes.
type Starter interface {
	Start(cmd Command, stdout, stderr io.Writer) (Process, error)
}

// ExecStarter launches processes with os/exec.
type ExecStarter struct{}

// Start launches cmd in its own process group with output wired to the writers.
func (ExecStarter) Start(c Command, stdout, stderr io.Writer) (Process, error) {
	proc := exec.Command(c.Interpreter, c.Script)
	proc.Dir = c.Dir
	proc.Env = c.Env
	proc.Stdout = stdout
	proc.Stderr = stderr
	configureProcAttr(proc)
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("launch backend %s: %w", c.Interpreter, err)
	}
	return &execProcess{cmd: proc}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	once   sync.Once
	status ExitStatus
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() ExitStatus {
	p.once.Do(func() {
		p.status = exitStatusFrom(p.cmd.Wait())
	})
	return p.status
}

func (p *execProcess) Terminate() error {
	return terminateProcess(p.cmd)
}

func (p *execProcess) Kill() error {
	return killProcess(p.cmd)
}
