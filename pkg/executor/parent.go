package executor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/log"
)

// DefaultGracePeriod is how long past the agent's duration budget the parent
// waits before killing the child's process group. The child enforces the
// budget itself; the grace period only catches a child that hangs.
const DefaultGracePeriod = 5 * time.Second

// Config describes how to spawn the executor child process.
type Config struct {
	// BinPath is the executor binary. Defaults to the corral-executor
	// binary on PATH.
	BinPath string

	// Args are passed to the binary before the request is written.
	Args []string

	// GracePeriod overrides DefaultGracePeriod.
	GracePeriod time.Duration

	// Env is appended to the child's environment, for provider
	// credentials.
	Env []string
}

// Executor runs agent invocations in child processes so a runaway model
// call or a crashing agent never takes a worker slot hostage.
type Executor struct {
	cfg Config
}

// NewExecutor creates an executor spawning cfg.BinPath per invocation.
func NewExecutor(cfg Config) *Executor {
	if cfg.BinPath == "" {
		cfg.BinPath = "corral-executor"
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Executor{cfg: cfg}
}

// Execute spawns a child, feeds it req on stdin and returns its response.
// A child that overruns its duration budget plus the grace period is killed
// along with its process group, and the overrun is reported as a
// non-retryable error so the message is dead-lettered rather than replayed
// into the same timeout.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.MaxDurationSeconds <= 0 {
		return nil, errdefs.Validationf("maxDurationSeconds must be positive")
	}
	logger := log.WithComponent("executor")

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.Command(e.cfg.BinPath, e.cfg.Args...) // #nosec G204 -- operator-configured binary
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(cmd.Environ(), e.cfg.Env...)
	// Own process group, so the kill reaches anything the child spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("start executor: %w", err))
	}

	deadline := time.Duration(req.MaxDurationSeconds)*time.Second + e.cfg.GracePeriod
	timer := time.AfterFunc(deadline, func() {
		logger.Warn().
			Str("agentId", req.AgentID).
			Dur("deadline", deadline).
			Msg("executor child overran budget, killing process group")
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	})

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-waitCh
		timer.Stop()
		return nil, errdefs.Wrap(errdefs.KindTransient, ctx.Err())
	}
	killed := !timer.Stop()
	elapsed := time.Since(start)

	if killed {
		return nil, errdefs.NonRetryablef(
			"agent %s exceeded maximum duration of %ds (killed after %s)",
			req.AgentID, req.MaxDurationSeconds, elapsed.Round(time.Millisecond))
	}

	resp, parseErr := parseResponse(stdout.Bytes())
	if parseErr != nil {
		if waitErr != nil {
			return nil, errdefs.NonRetryablef(
				"executor exited without a response: %v (stderr: %s)",
				waitErr, stderrTail(&stderr))
		}
		return nil, errdefs.NonRetryablef(
			"executor produced malformed output: %v (stderr: %s)",
			parseErr, stderrTail(&stderr))
	}
	if resp.DurationMs == 0 {
		resp.DurationMs = elapsed.Milliseconds()
	}
	return resp, nil
}

// parseResponse decodes the last non-empty stdout line as a Response. Only
// the last line counts, so agents printing diagnostics to stdout do not
// break the protocol.
func parseResponse(out []byte) (*Response, error) {
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if last == "" {
		return nil, fmt.Errorf("no output")
	}
	var resp Response
	if err := json.Unmarshal([]byte(last), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func stderrTail(buf *bytes.Buffer) string {
	const max = 512
	s := strings.TrimSpace(buf.String())
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
