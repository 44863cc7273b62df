package runner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/kgaudium/tentaclepreview/pkg/log"
)

// DefaultGrace is the termination grace period used when a caller does
// not supply one, matching the fixed 5-second grace before force-kill.
const DefaultGrace = 5 * time.Second

// Result is the outcome of a synchronous command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunSync runs cmd (shell-interpreted) to completion in cwd, capturing
// stdout and stderr fully. It is used for the build pipeline's
// command-by-command steps.
func RunSync(ctx context.Context, cmd, cwd string) (Result, error) {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = cwd

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, fmt.Errorf("runner: %s: %w", cmd, err)
		}
	}

	return Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Handle is a reference to a spawned, long-lived child process running
// in its own process group.
type Handle struct {
	cmd   *exec.Cmd
	group processGroup

	mu      sync.Mutex
	stdout  io.ReadCloser
	stderr  io.ReadCloser
	waitErr error
	waitCh  chan struct{}
}

// Spawn starts cmd (shell-interpreted) in cwd as a long-lived process in
// its own process group, so Terminate can fan out to grandchildren. The
// child does not inherit the parent's controlling terminal beyond what
// the shell requires.
func Spawn(cmd, cwd string) (*Handle, error) {
	c := exec.Command("sh", "-c", cmd)
	c.Dir = cwd
	setProcessGroup(c)

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("runner: stdout pipe: %w", err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("runner: stderr pipe: %w", err)
	}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("runner: spawn %q: %w", cmd, err)
	}

	h := &Handle{
		cmd:    c,
		group:  processGroupOf(c),
		stdout: stdout,
		stderr: stderr,
		waitCh: make(chan struct{}),
	}

	go func() {
		h.waitErr = c.Wait()
		close(h.waitCh)
	}()

	return h, nil
}

// PID returns the spawned process's PID.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Stream returns two unidirectional line channels, one per stream. Each
// channel delivers a finite, non-restartable sequence of lines stripped
// of their trailing newline and closes when the corresponding stream
// reaches EOF. Reader failures are logged at debug level and swallowed.
func (h *Handle) Stream() (stdout <-chan string, stderr <-chan string) {
	outCh := make(chan string, 64)
	errCh := make(chan string, 64)

	go readLines(h.stdout, outCh, "stdout")
	go readLines(h.stderr, errCh, "stderr")

	return outCh, errCh
}

func readLines(r io.Reader, out chan<- string, label string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		log.WithComponent("runner").Debug().Err(err).Str("stream", label).Msg("reader stopped")
	}
}

// Terminate asks the process group to exit gracefully, waits up to
// grace (DefaultGrace if zero), then force-kills the group. It returns
// once the process has exited, after which the stdout/stderr readers
// started by Stream will observe EOF.
func (h *Handle) Terminate(grace time.Duration) error {
	if grace <= 0 {
		grace = DefaultGrace
	}

	if err := h.group.signalTerm(); err != nil {
		log.WithComponent("runner").Debug().Err(err).Int("pid", h.PID()).Msg("graceful signal failed, forcing kill")
		if kerr := h.group.kill(); kerr != nil {
			return kerr
		}
		<-h.waitCh
		return nil
	}

	select {
	case <-h.waitCh:
		return nil
	case <-time.After(grace):
		if err := h.group.kill(); err != nil {
			return err
		}
		<-h.waitCh
		return nil
	}
}

// Wait blocks until the spawned process exits.
func (h *Handle) Wait() error {
	<-h.waitCh
	return h.waitErr
}
