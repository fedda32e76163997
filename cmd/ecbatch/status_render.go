package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"ecbatch/internal/preflight"
	"ecbatch/internal/stage"
	"ecbatch/internal/stageexec"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const (
	ansiReset        = "\x1b[0m"
	statusLabelWidth = 28
	statusIndent     = "  "
)

// statusPrinter collects status lines, colorizing them for terminals.
type statusPrinter struct {
	colorize bool
	lines    []string
	failed   int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{colorize: shouldColorize(out)}
}

func (p *statusPrinter) section(title string) {
	if len(p.lines) > 0 {
		p.lines = append(p.lines, "")
	}
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	p.lines = append(p.lines, p.paint(statusInfo, line), p.paint(statusInfo, rule))
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	text := fmt.Sprintf("[%s]", statusStyles[kind].label)
	if message != "" {
		text += " " + message
	}
	p.lines = append(p.lines, p.paint(kind, fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)))
}

// check renders a preflight result; failures are counted.
func (p *statusPrinter) check(result preflight.Result) {
	kind := statusOK
	if !result.Passed {
		kind = statusError
		p.failed++
	}
	p.line(result.Name, kind, result.Detail)
}

// health renders stage readiness. An unready stage is a warning because
// other stages can still run.
func (p *statusPrinter) health(h stage.Health) {
	kind := statusOK
	if !h.Ready {
		kind = statusWarn
	}
	p.line(stageexec.StageLabel(h.Name), kind, h.Detail)
}

func (p *statusPrinter) String() string {
	return strings.Join(p.lines, "\n")
}

func (p *statusPrinter) paint(kind statusKind, s string) string {
	if !p.colorize {
		return s
	}
	return statusStyles[kind].color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
