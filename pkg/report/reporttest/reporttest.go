// Package reporttest provides a scripted Reporter for tests.
package reporttest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/odvcencio/rpdist/pkg/progress"
	"github.com/odvcencio/rpdist/pkg/report"
)

// Reporter records every message and answers prompts from Answers in
// order. Choice answers are option values; yes/no answers are "yes" or
// "no". An empty answer selects the default.
type Reporter struct {
	Answers []string
	// Run replaces program execution. Without it every program exits 0.
	Run func(ctx context.Context, cmd report.Command) (int, error)
	// Fetch replaces downloads. Without it downloads fail.
	Fetch func(ctx context.Context, url, out string) error

	mu       sync.Mutex
	messages []string
	commands []report.Command
	bar      *progress.Bar
}

var _ report.Reporter = (*Reporter)(nil)

func (r *Reporter) record(kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, kind+": "+msg)
}

// Messages returns the recorded messages as "kind: text".
func (r *Reporter) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Contains reports whether a message of kind includes text.
func (r *Reporter) Contains(kind, text string) bool {
	for _, m := range r.Messages() {
		if strings.HasPrefix(m, kind+": ") && strings.Contains(m, text) {
			return true
		}
	}
	return false
}

// Commands returns the programs run so far.
func (r *Reporter) Commands() []report.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report.Command(nil), r.commands...)
}

func (r *Reporter) next(prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Answers) == 0 {
		return "", fmt.Errorf("no scripted answer for %q: %w", prompt, report.ErrInterrupted)
	}
	answer := r.Answers[0]
	r.Answers = r.Answers[1:]
	r.messages = append(r.messages, "prompt: "+prompt+" - "+answer)
	return answer, nil
}

func (r *Reporter) Info(msg string)    { r.record("info", msg) }
func (r *Reporter) Verbose(msg string) { r.record("verbose", msg) }
func (r *Reporter) Success(msg string) { r.record("success", msg) }
func (r *Reporter) Pause(msg string)   { r.record("pause", msg) }

func (r *Reporter) FinalSuccess(msg string) error {
	r.record("final", msg)
	return &report.ExitError{Code: 0}
}

func (r *Reporter) Fail(msg string) error {
	r.record("fail", msg)
	return &report.ExitError{Code: 1}
}

func (r *Reporter) Exception(msg string, err error) {
	r.record("exception", fmt.Sprintf("%s - %v", msg, err))
}

func (r *Reporter) Input(prompt string, opts report.InputOptions) (string, error) {
	answer, err := r.next(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		if !opts.AllowEmpty {
			return "", fmt.Errorf("empty answer for %q", prompt)
		}
		return opts.Default, nil
	}
	return answer, nil
}

func (r *Reporter) Choice(prompt string, options []report.Option, def string) (string, error) {
	answer, err := r.next(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = def
	}
	for _, o := range options {
		if o.Value == answer {
			return answer, nil
		}
	}
	return "", fmt.Errorf("answer %q is not an option of %q", answer, prompt)
}

func (r *Reporter) YesNo(prompt string) (bool, error) { return r.YesNoChoice(prompt, nil) }

func (r *Reporter) YesNoChoice(prompt string, def *bool) (bool, error) {
	answer, err := r.next(prompt)
	if err != nil {
		return false, err
	}
	switch answer {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	case "":
		if def != nil {
			return *def, nil
		}
	}
	return false, fmt.Errorf("answer %q is not yes or no", answer)
}

func (r *Reporter) Terms(prompt, url string) error {
	ok, err := r.YesNo(prompt)
	if err != nil {
		return err
	}
	if !ok {
		return r.Fail("You must accept the terms and conditions to proceed.")
	}
	return nil
}

func (r *Reporter) OpenDirectory(prompt, dir string) error {
	r.record("open", dir)
	return nil
}

func (r *Reporter) Download(ctx context.Context, prompt, url, out string) error {
	r.record("download", url)
	if r.Fetch == nil {
		return errors.New("downloads are not scripted")
	}
	return r.Background(ctx, prompt, func(ctx context.Context) error {
		return r.Fetch(ctx, url, out)
	})
}

func (r *Reporter) RunSubprocess(ctx context.Context, cmd report.Command) (int, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if r.Run == nil {
		return 0, nil
	}
	return r.Run(ctx, cmd)
}

func (r *Reporter) Background(ctx context.Context, prompt string, fn func(context.Context) error) error {
	return report.RunBackground(ctx, r, prompt, fn)
}

func (r *Reporter) Pool(ctx context.Context, prompts []string, jobs []report.Job) error {
	return report.RunPool(ctx, r, prompts, jobs)
}

func (r *Reporter) StartProgressBar(captions ...string) (*progress.Bar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		return nil, errors.New("can not start progress bar with another one in progress")
	}
	r.bar = progress.NewBar(captions...)
	return r.bar, nil
}

func (r *Reporter) UpdateProgressBar(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil && len(values) == r.bar.Len() {
		for i, v := range values {
			r.bar.Update(i, v)
		}
	}
}

func (r *Reporter) EndProgressBar() {
	r.mu.Lock()
	bar := r.bar
	r.bar = nil
	r.mu.Unlock()
	if bar != nil {
		r.record("progress", bar.String())
	}
}

// BarOpen reports whether a progress display is open.
func (r *Reporter) BarOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bar != nil
}
