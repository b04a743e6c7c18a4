package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Exec runs cmd and returns its exit code. stdout and stderr are used for
// the streams cmd leaves unset.
func Exec(ctx context.Context, cmd Command, stdout, stderr io.Writer) (int, error) {
	if len(cmd.Args) == 0 {
		return -1, errors.New("run: empty command")
	}
	if cmd.Yes {
		streams := []struct {
			name string
			set  bool
		}{
			{"stdin", cmd.Stdin != nil},
			{"stdout", cmd.Stdout != nil},
			{"stderr", cmd.Stderr != nil},
		}
		for _, s := range streams {
			if s.set {
				return -1, fmt.Errorf("'yes' and '%s' can not be used at the same time", s.name)
			}
		}
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	if c.Stdout == nil {
		c.Stdout = stdout
	}
	c.Stderr = cmd.Stderr
	if c.Stderr == nil {
		c.Stderr = stderr
	}

	var stdin io.WriteCloser
	if cmd.Yes {
		var err error
		if stdin, err = c.StdinPipe(); err != nil {
			return -1, err
		}
	}
	if err := c.Start(); err != nil {
		return -1, fmt.Errorf("run %s: %w", cmd.Args[0], err)
	}

	finished := make(chan struct{})
	if stdin != nil {
		go func() {
			ticker := time.NewTicker(RedrawInterval)
			defer ticker.Stop()
			for {
				select {
				case <-finished:
					return
				case <-ticker.C:
					_, _ = io.WriteString(stdin, "y\n")
				}
			}
		}()
	}

	err := c.Wait()
	close(finished)
	if ctx.Err() != nil {
		return c.ProcessState.ExitCode(), ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("run %s: %w", cmd.Args[0], err)
	}
	return 0, nil
}

// openCommand returns the command showing target with the desktop's
// default application.
func openCommand(target string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		return exec.Command("open", target)
	}
	return exec.Command("xdg-open", target)
}

// startDetached starts cmd without waiting for it.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
