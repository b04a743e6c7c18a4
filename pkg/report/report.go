// Package report is how build tasks talk to the person running the build:
// messages, prompts, progress displays and long running work that should
// stay visible while it happens.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/odvcencio/rpdist/pkg/progress"
)

// ErrInterrupted is returned when the user aborts a prompt or the build.
var ErrInterrupted = errors.New("interrupted")

// ExitError ends the build with Code. Code 0 is a successful early exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	if e.Code == 0 {
		return "finished"
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// FutureError reports which job of a pool failed.
type FutureError struct {
	Index int
	Err   error
}

func (e *FutureError) Error() string { return fmt.Sprintf("job %d: %v", e.Index, e.Err) }
func (e *FutureError) Unwrap() error { return e.Err }

// InputOptions control a free text prompt. With AllowEmpty an empty answer
// returns Default; otherwise the prompt is repeated until something is
// typed.
type InputOptions struct {
	Default    string
	AllowEmpty bool
}

// Option is one entry of a choice menu.
type Option struct {
	Value string
	Label string
}

// Command describes a program run through RunSubprocess.
type Command struct {
	Args []string
	// Env is appended to the environment of the build.
	Env []string
	Dir string
	// Yes keeps answering "y" on stdin. It can not be combined with the
	// stdio fields.
	Yes bool
	// Cancel marks a long call the user may be offered to cancel.
	Cancel bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Job is one unit of a pool. Ranging over the returned steps does the
// work.
type Job func(ctx context.Context) progress.Steps

// ProgressHost shows a single progress display at a time.
type ProgressHost interface {
	// StartProgressBar fails when another display is open.
	StartProgressBar(captions ...string) (*progress.Bar, error)
	// UpdateProgressBar sets every entity value, if given, and redraws.
	UpdateProgressBar(values ...string)
	// EndProgressBar draws the final state and closes the display. It is
	// a no-op without an open display.
	EndProgressBar()
}

// Reporter is the user interface of a build.
type Reporter interface {
	ProgressHost

	Info(msg string)
	// Verbose is shown only in verbose mode.
	Verbose(msg string)
	Success(msg string)
	// FinalSuccess shows msg and returns an *ExitError with code 0.
	FinalSuccess(msg string) error
	// Fail shows msg, waits for the user and returns an *ExitError with
	// code 1.
	Fail(msg string) error
	Exception(msg string, err error)
	Pause(msg string)

	Input(prompt string, opts InputOptions) (string, error)
	// Choice returns the Value of the selected option. def preselects
	// the option with that value, if any.
	Choice(prompt string, options []Option, def string) (string, error)
	YesNo(prompt string) (bool, error)
	YesNoChoice(prompt string, def *bool) (bool, error)

	// Terms opens url and fails unless the user accepts.
	Terms(prompt, url string) error
	OpenDirectory(prompt, dir string) error
	Download(ctx context.Context, prompt, url, out string) error
	// RunSubprocess returns the exit code of the program.
	RunSubprocess(ctx context.Context, cmd Command) (int, error)

	Background(ctx context.Context, prompt string, fn func(context.Context) error) error
	Pool(ctx context.Context, prompts []string, jobs []Job) error
}
