package report

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/odvcencio/rpdist/pkg/progress"
)

// ConsoleOptions configure a Console. Zero fields use the process stdio,
// a discarding logger and a prompter that fits the input.
type ConsoleOptions struct {
	Verbose bool
	// Silent hides everything but forced messages.
	Silent bool

	Out      io.Writer
	In       io.Reader
	Logger   *logrus.Logger
	Prompter Prompter
	Client   *http.Client
}

// Console is the command line Reporter. Every interaction is mirrored to
// its logger whatever the console verbosity.
type Console struct {
	verbose bool
	silent  bool
	tty     bool

	out      io.Writer
	in       io.Reader
	prompter Prompter
	client   *http.Client
	log      *logrus.Entry

	infoColor    *color.Color
	successColor *color.Color
	errorColor   *color.Color

	mu  sync.Mutex
	bar *progress.Bar
}

var _ Reporter = (*Console)(nil)

func NewConsole(opts ConsoleOptions) *Console {
	c := &Console{
		verbose:  opts.Verbose,
		silent:   opts.Silent,
		out:      opts.Out,
		in:       opts.In,
		prompter: opts.Prompter,
		client:   opts.Client,
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.in == nil {
		c.in = os.Stdin
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	c.tty = isTerminal(c.out) && isTerminal(c.in)
	if c.prompter == nil {
		if c.tty {
			c.prompter = SurveyPrompter{}
		} else {
			c.prompter = NewLinePrompter(c.in, c.out)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = DiscardLogger()
	}
	c.log = logger.WithFields(logrus.Fields{"part": "reporter", "session": uuid.NewString()})

	c.infoColor = color.New(color.Reset)
	c.successColor = color.New(color.FgGreen)
	c.errorColor = color.New(color.FgRed, color.Bold)
	if !c.tty {
		for _, col := range []*color.Color{c.infoColor, c.successColor, c.errorColor} {
			col.DisableColor()
		}
	}
	return c
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// write prints s unless silent mode hides it, and records it in the log.
func (c *Console) write(col *color.Color, s string, record, force bool) {
	if s == "" {
		return
	}
	if !c.silent || force {
		col.Fprintln(c.out, s)
	}
	if record {
		c.log.Info(s)
	}
}

// raw prints s as is, for terminal control sequences.
func (c *Console) raw(s string) {
	if !c.silent {
		fmt.Fprint(c.out, s)
	}
}

func (c *Console) Info(msg string) { c.write(c.infoColor, msg, true, false) }

func (c *Console) Verbose(msg string) {
	if !c.verbose {
		return
	}
	c.write(c.infoColor, msg, true, true)
}

func (c *Console) Success(msg string) {
	if !c.verbose {
		return
	}
	c.write(c.successColor, msg, true, true)
}

func (c *Console) FinalSuccess(msg string) error {
	c.write(c.successColor, msg, true, true)
	return &ExitError{Code: 0}
}

func (c *Console) Fail(msg string) error {
	c.Pause(msg)
	return &ExitError{Code: 1}
}

func (c *Console) Exception(msg string, err error) {
	if err == nil {
		return
	}
	line := fmt.Sprintf("%s - %v", msg, err)
	c.errorColor.Fprintln(c.out, line)
	c.log.WithError(err).Error(msg)
}

// Pause shows msg and waits for a key press on a terminal.
func (c *Console) Pause(msg string) {
	c.write(c.infoColor, msg, true, true)
	if !c.tty {
		return
	}
	f, ok := c.in.(*os.File)
	if !ok {
		return
	}
	fmt.Fprint(c.out, "Press any key to continue...")
	if state, err := term.MakeRaw(int(f.Fd())); err == nil {
		var key [1]byte
		_, _ = f.Read(key[:])
		_ = term.Restore(int(f.Fd()), state)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) ask(prompt string) (string, error) {
	answer, err := c.prompter.Line(prompt)
	if errors.Is(err, ErrInterrupted) {
		c.raw("\n")
	}
	return answer, err
}

func (c *Console) Input(prompt string, opts InputOptions) (string, error) {
	line := prompt + " > "
	if opts.AllowEmpty && opts.Default != "" {
		line = fmt.Sprintf("%s [%s]> ", prompt, opts.Default)
	}
	var answer string
	for {
		var err error
		if answer, err = c.ask(line); err != nil {
			return "", err
		}
		if answer != "" {
			break
		}
		if opts.AllowEmpty {
			answer = opts.Default
			break
		}
	}
	c.log.Info(prompt + " - " + cmp.Or(answer, "NO INPUT"))
	return answer, nil
}

func (c *Console) Choice(prompt string, options []Option, def string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("choice: no options")
	}
	c.log.Info(prompt)
	labels := make([]string, len(options))
	defIdx := -1
	for i, o := range options {
		if defIdx < 0 && def != "" && o.Value == def {
			defIdx = i
		}
		labels[i] = o.Label
		c.log.Info(fmt.Sprintf("%d) %s", i+1, o.Label))
	}

	n, err := c.prompter.Select(prompt, labels, defIdx)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			c.raw("\n")
		}
		return "", err
	}
	if n < 0 || n >= len(options) {
		return "", fmt.Errorf("choice: answer %d out of range", n+1)
	}
	c.log.Info(fmt.Sprintf("Choice result - %d", n+1))
	return options[n].Value, nil
}

func (c *Console) YesNo(prompt string) (bool, error) { return c.YesNoChoice(prompt, nil) }

func (c *Console) YesNoChoice(prompt string, def *bool) (bool, error) {
	result, err := c.prompter.Confirm(prompt, def)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			c.raw("\n")
		}
		return false, err
	}
	c.log.Info(prompt + " - " + yesNo(result))
	return result, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (c *Console) Terms(prompt, url string) error {
	c.Verbose(fmt.Sprintf("Opening %s in a web browser.", url))
	if err := startDetached(openCommand(url)); err != nil {
		c.log.WithError(err).Warn("open browser")
	}
	time.Sleep(500 * time.Millisecond)

	ok, err := c.YesNo(prompt)
	if err != nil {
		return err
	}
	if !ok {
		return c.Fail("You must accept the terms and conditions to proceed.")
	}
	return nil
}

func (c *Console) OpenDirectory(prompt, dir string) error {
	c.Verbose(prompt)
	return startDetached(openCommand(dir))
}

func (c *Console) Download(ctx context.Context, prompt, url, out string) error {
	return DownloadFile(ctx, c, c.client, prompt, url, out)
}

func (c *Console) RunSubprocess(ctx context.Context, cmd Command) (int, error) {
	c.log.WithField("args", cmd.Args).Debug("run")
	return Exec(ctx, cmd, c.out, c.out)
}

func (c *Console) Background(ctx context.Context, prompt string, fn func(context.Context) error) error {
	return RunBackground(ctx, c, prompt, fn)
}

func (c *Console) Pool(ctx context.Context, prompts []string, jobs []Job) error {
	return RunPool(ctx, c, prompts, jobs)
}

func (c *Console) StartProgressBar(captions ...string) (*progress.Bar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		return nil, errors.New("can not start progress bar with another one in progress")
	}
	c.bar = progress.NewBar(captions...)
	if c.tty {
		c.raw(c.bar.String() + "\n")
	}
	return c.bar, nil
}

func (c *Console) UpdateProgressBar(values ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	if len(values) == c.bar.Len() {
		for i, v := range values {
			c.bar.Update(i, v)
		}
	}
	if c.tty {
		c.raw(fmt.Sprintf("\033[%dF%s\n", c.bar.Len(), c.bar))
	}
}

func (c *Console) EndProgressBar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	final := c.bar.String()
	if c.tty {
		c.raw(fmt.Sprintf("\033[%dF", c.bar.Len()))
	}
	c.raw(final + "\n")
	c.log.Info(final)
	c.bar = nil
}
