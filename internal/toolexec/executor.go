package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"ecbatch/internal/services"
)

const (
	// DefaultStderrLimit bounds the captured standard error prefix.
	DefaultStderrLimit = 500
	defaultStdoutLimit = 64 << 10
)

// Invocation describes one external tool run.
type Invocation struct {
	Binary string
	Args   []string
	Dir    string
}

// CommandLine renders the invocation for diagnostics.
func (i Invocation) CommandLine() string {
	return strings.Join(append([]string{i.Binary}, i.Args...), " ")
}

// Outcome captures what a finished tool run produced.
type Outcome struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	StderrTruncated bool
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}

// CommandExecutor runs invocations with os/exec.
type CommandExecutor struct {
	StderrLimit int
	StdoutLimit int
}

// NewCommandExecutor returns an executor that keeps at most stderrLimit bytes
// of standard error.
func NewCommandExecutor(stderrLimit int) CommandExecutor {
	if stderrLimit <= 0 {
		stderrLimit = DefaultStderrLimit
	}
	return CommandExecutor{StderrLimit: stderrLimit, StdoutLimit: defaultStdoutLimit}
}

// Run starts the tool and blocks until it exits. A nonzero exit or a failure to
// start is reported as services.ErrExternalTool alongside the captured output.
func (e CommandExecutor) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if strings.TrimSpace(inv.Binary) == "" {
		return Outcome{ExitCode: -1}, services.Wrap(services.ErrConfiguration, "toolexec", "run", "binary path is empty", nil)
	}
	stdout := newPrefixBuffer(e.StdoutLimit)
	stderr := newPrefixBuffer(e.StderrLimit)

	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	detach(cmd)

	err := cmd.Run()
	outcome := Outcome{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StderrTruncated: stderr.Truncated(),
	}
	if err == nil {
		return outcome, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		return outcome, services.Wrap(services.ErrExternalTool, "", inv.Binary, fmt.Sprintf("exit status %d", outcome.ExitCode), err)
	}
	outcome.ExitCode = -1
	return outcome, services.Wrap(services.ErrExternalTool, "", inv.Binary, "start command", err)
}

// prefixBuffer keeps the first limit bytes written and discards the rest, so a
// chatty tool cannot grow worker memory without bound.
type prefixBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newPrefixBuffer(limit int) *prefixBuffer {
	return &prefixBuffer{limit: limit}
}

func (p *prefixBuffer) Write(data []byte) (int, error) {
	remaining := p.limit - p.buf.Len()
	if remaining <= 0 {
		if len(data) > 0 {
			p.truncated = true
		}
		return len(data), nil
	}
	if len(data) > remaining {
		p.buf.Write(data[:remaining])
		p.truncated = true
		return len(data), nil
	}
	p.buf.Write(data)
	return len(data), nil
}

func (p *prefixBuffer) String() string { return p.buf.String() }

func (p *prefixBuffer) Truncated() bool { return p.truncated }
