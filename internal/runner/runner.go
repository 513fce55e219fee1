// Package runner runs the external tools nvgtbuild drives (vcpkg, lipo,
// hdiutil, hhc.exe) and turns a failed process into an error carrying its
// exit code and output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

type Cmd struct {
	Exe  string
	Args []string
	Dir  string
	// Env entries are appended to the current process environment.
	Env []string
}

func Command(exe string, args ...string) Cmd {
	return Cmd{Exe: exe, Args: args}
}

func (c Cmd) InDir(dir string) Cmd {
	c.Dir = dir
	return c
}

func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Exe
	}
	return c.Exe + " " + strings.Join(c.Args, " ")
}

// Runner executes commands and returns their combined output.
type Runner interface {
	Run(ctx context.Context, c Cmd) ([]byte, error)
}

type Error struct {
	Cmd      Cmd
	ExitCode int
	Output   []byte
	Err      error
}

func (e *Error) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s failed with error code %d", e.Cmd, e.ExitCode)
	}
	return fmt.Sprintf("%s failed: %v", e.Cmd, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Exec is the Runner backed by os/exec.
type Exec struct{}

func (Exec) Run(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Exe, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	tlogger.Debug("msg", "exec", "cmd", c.String(), "dir", c.Dir)
	err := cmd.Run()
	if err != nil {
		rerr := &Error{Cmd: c, ExitCode: -1, Output: out.Bytes(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			rerr.ExitCode = exitErr.ExitCode()
		}
		tlogger.Error("msg", "command failed", "cmd", c.String(), "dir", c.Dir, "err", err)
		return out.Bytes(), rerr
	}
	return out.Bytes(), nil
}

// Have reports whether exe can be found on PATH (or exists, for absolute paths).
func Have(exe string) bool {
	_, err := exec.LookPath(exe)
	return err == nil
}
