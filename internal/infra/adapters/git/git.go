// git reads working tree state by running the git binary. Implements
// the ports.ForVersioning interface.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
)

const DefaultBinary = "git"

type forVersioning struct {
	binary string
	dir    string
}

type Option func(*forVersioning)

// WithBinary overrides the git executable.
func WithBinary(binary string) Option {
	return func(v *forVersioning) {
		if binary != "" {
			v.binary = binary
		}
	}
}

// New returns a ports.ForVersioning running git in dir. An empty dir
// is the current working directory.
func New(dir string, opts ...Option) ports.ForVersioning {
	v := &forVersioning{
		binary: DefaultBinary,
		dir:    dir,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *forVersioning) Status(ctx context.Context) ([]string, error) {
	out, err := v.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (v *forVersioning) Show(ctx context.Context, rev, path string) (string, error) {
	out, err := v.run(ctx, "show", rev+":"+path)
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) && gerr.missingPath() {
			return "", fmt.Errorf("%s:%s: %w", rev, path, ports.ErrNotFound)
		}
		return "", err
	}
	return out, nil
}

// Error is a failed git invocation.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s exited with %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// missingPath reports whether git complained about a path or revision
// that does not exist, as opposed to not being a repository at all.
func (e *Error) missingPath() bool {
	s := strings.ToLower(e.Stderr)
	for _, m := range []string{
		"does not exist in",
		"exists on disk, but not in",
		"invalid object name",
		"unknown revision",
	} {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (v *forVersioning) run(ctx context.Context, args ...string) (string, error) {
	l := logger.FromContext(ctx)
	command := shellescape.QuoteCommand(append([]string{v.binary}, args...))
	l.Debug("Running", "command", command, "dir", v.dir)
	cmd := exec.CommandContext(ctx, v.binary, args...)
	cmd.Dir = v.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &Error{Command: command, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return "", fmt.Errorf("%s: %w", command, err)
	}
	return stdout.String(), nil
}
