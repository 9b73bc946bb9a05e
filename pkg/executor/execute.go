package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Timeout bounds commands run without an explicit context. Everything this
// tool shells out to (lspci, systemctl, modprobe) finishes in seconds;
// anything still running after two minutes is wedged.
const Timeout = 2 * time.Minute

var (
	ErrEmptyCommand = errors.New("empty command")
	ErrTimeOut      = errors.New("command timed out")
	ErrCanceled     = errors.New("command canceled")
	ErrExit         = errors.New("command exited with error")
)

// Execute runs the named program with the given arguments under the
// default timeout and returns its combined output.
func Execute(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	return ExecuteWithContext(ctx, name, args...)
}

// ExecuteWithTimeout is like [Execute] with a custom timeout.
func ExecuteWithTimeout(timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return ExecuteWithContext(ctx, name, args...)
}

// ExecuteWithContext is like [Execute] but includes a context. A nil
// context is replaced with one carrying the default timeout.
func ExecuteWithContext(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "" {
		return nil, ErrEmptyCommand
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if err == nil {
		return buf.Bytes(), nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = ErrTimeOut
	case errors.Is(ctx.Err(), context.Canceled):
		err = ErrCanceled
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("%w (status %d)", ErrExit, exitErr.ExitCode())
		}
	}

	return buf.Bytes(), fmt.Errorf("%w: %s %v", err, name, args)
}
