package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"yliproxy/internal/logging"
)

// Runner executes an external program and collects its output.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs programs with os/exec and tracks live processes so they
// can be killed at shutdown.
type ExecRunner struct {
	processes map[*exec.Cmd]string
	processMu sync.Mutex
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		processes: make(map[*exec.Cmd]string),
	}
}

// Run starts name with args and waits for it. A non-nil error is returned
// for start failures, non-zero exits and context cancellation; stderr is
// returned in every case.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	desc := name + " " + strings.Join(args, " ")
	r.processMu.Lock()
	r.processes[cmd] = desc
	r.processMu.Unlock()

	defer func() {
		r.processMu.Lock()
		delete(r.processes, cmd)
		r.processMu.Unlock()
	}()

	err := cmd.Wait()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Running returns the number of tracked processes.
func (r *ExecRunner) Running() int {
	r.processMu.Lock()
	defer r.processMu.Unlock()
	return len(r.processes)
}

// Cleanup kills all running processes.
func (r *ExecRunner) Cleanup() {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	for cmd, desc := range r.processes {
		if cmd.Process != nil {
			logging.Info("Killing process: %s", desc)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill process %s: %v", desc, err)
			}
		}
	}
}
