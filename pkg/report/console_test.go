package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/rpdist/pkg/progress"
)

func newTestConsole(input string, opts ConsoleOptions) (*Console, *bytes.Buffer, *bytes.Buffer) {
	var out, logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	opts.Out = &out
	opts.In = strings.NewReader(input)
	opts.Logger = logger
	return NewConsole(opts), &out, &logs
}

func TestInputRepeatsUntilAnswered(t *testing.T) {
	c, out, logs := newTestConsole("\n  \nhello\n", ConsoleOptions{})
	got, err := c.Input("Name", InputOptions{})
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if got != "hello" {
		t.Errorf("Input = %q", got)
	}
	if n := strings.Count(out.String(), "Name > "); n != 3 {
		t.Errorf("prompted %d times, output %q", n, out)
	}
	if !strings.Contains(logs.String(), "Name - hello") {
		t.Errorf("log = %q", logs)
	}
}

func TestInputDefault(t *testing.T) {
	c, out, logs := newTestConsole("\n", ConsoleOptions{})
	got, err := c.Input("Version", InputOptions{Default: "1.0", AllowEmpty: true})
	if err != nil || got != "1.0" {
		t.Fatalf("Input = %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "Version [1.0]> ") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(logs.String(), "Version - 1.0") {
		t.Errorf("log = %q", logs)
	}

	c, _, logs = newTestConsole("\n", ConsoleOptions{})
	if got, _ := c.Input("Key", InputOptions{AllowEmpty: true}); got != "" {
		t.Errorf("Input = %q", got)
	}
	if !strings.Contains(logs.String(), "Key - NO INPUT") {
		t.Errorf("log = %q", logs)
	}
}

func TestInputEndOfInput(t *testing.T) {
	c, _, _ := newTestConsole("", ConsoleOptions{})
	if _, err := c.Input("Name", InputOptions{}); err == nil {
		t.Fatal("expected an error at end of input")
	}
}

func TestChoice(t *testing.T) {
	options := []Option{{Value: "a", Label: "First"}, {Value: "b", Label: "Second"}}

	c, out, logs := newTestConsole("abc\n9\n2\n", ConsoleOptions{})
	got, err := c.Choice("Pick one", options, "")
	if err != nil || got != "b" {
		t.Fatalf("Choice = %q, %v", got, err)
	}
	for _, want := range []string{"Pick one", "1) First", "2) Second", "1-2> "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q misses %q", out, want)
		}
	}
	if !strings.Contains(logs.String(), "Choice result - 2") {
		t.Errorf("log = %q", logs)
	}

	c, out, _ = newTestConsole("\n", ConsoleOptions{})
	if got, _ := c.Choice("Pick one", options, "b"); got != "b" {
		t.Errorf("default Choice = %q", got)
	}
	if !strings.Contains(out.String(), "1-2 [2]> ") {
		t.Errorf("output = %q", out)
	}
}

func TestYesNo(t *testing.T) {
	c, _, logs := newTestConsole("maybe\ny\n", ConsoleOptions{})
	got, err := c.YesNo("Continue?")
	if err != nil || !got {
		t.Fatalf("YesNo = %v, %v", got, err)
	}
	if !strings.Contains(logs.String(), "Continue? - yes") {
		t.Errorf("log = %q", logs)
	}

	no := false
	c, out, _ := newTestConsole("\n", ConsoleOptions{})
	if got, _ := c.YesNoChoice("Sign?", &no); got {
		t.Error("YesNoChoice ignored the default")
	}
	if !strings.Contains(out.String(), "Sign? yes/no [no]> ") {
		t.Errorf("output = %q", out)
	}
}

type scriptedPrompter struct {
	pick    int
	confirm bool
	err     error

	labels []string
	def    int
	yesDef *bool
}

func (p *scriptedPrompter) Line(string) (string, error) { return "", p.err }

func (p *scriptedPrompter) Select(_ string, labels []string, def int) (int, error) {
	p.labels, p.def = labels, def
	return p.pick, p.err
}

func (p *scriptedPrompter) Confirm(_ string, def *bool) (bool, error) {
	p.yesDef = def
	return p.confirm, p.err
}

func TestChoiceUsesPrompterMenus(t *testing.T) {
	options := []Option{{Value: "a", Label: "First"}, {Value: "b", Label: "Second"}, {Value: "c", Label: "Third"}}

	p := &scriptedPrompter{pick: 2}
	c, out, logs := newTestConsole("", ConsoleOptions{Prompter: p})
	got, err := c.Choice("Pick one", options, "b")
	if err != nil || got != "c" {
		t.Fatalf("Choice = %q, %v", got, err)
	}
	if strings.Join(p.labels, ",") != "First,Second,Third" || p.def != 1 {
		t.Errorf("Select got labels %q default %d", p.labels, p.def)
	}
	if out.Len() != 0 {
		t.Errorf("console printed the menu itself: %q", out)
	}
	for _, want := range []string{"Pick one", "3) Third", "Choice result - 3"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log %q misses %q", logs, want)
		}
	}

	p = &scriptedPrompter{}
	c, _, _ = newTestConsole("", ConsoleOptions{Prompter: p})
	if _, err := c.Choice("Pick one", options, "missing"); err != nil || p.def != -1 {
		t.Errorf("unknown default: def %d, err %v", p.def, err)
	}

	p = &scriptedPrompter{pick: 7}
	c, _, _ = newTestConsole("", ConsoleOptions{Prompter: p})
	if _, err := c.Choice("Pick one", options, ""); err == nil {
		t.Error("out of range answer accepted")
	}
}

func TestYesNoUsesPrompterConfirm(t *testing.T) {
	yes := true
	p := &scriptedPrompter{confirm: true}
	c, _, logs := newTestConsole("", ConsoleOptions{Prompter: p})
	got, err := c.YesNoChoice("Sign?", &yes)
	if err != nil || !got {
		t.Fatalf("YesNoChoice = %v, %v", got, err)
	}
	if p.yesDef != &yes {
		t.Error("default not passed to Confirm")
	}
	if !strings.Contains(logs.String(), "Sign? - yes") {
		t.Errorf("log = %q", logs)
	}
}

func TestPromptInterrupted(t *testing.T) {
	p := &scriptedPrompter{err: ErrInterrupted}
	c, out, _ := newTestConsole("", ConsoleOptions{Prompter: p})
	if _, err := c.Choice("Pick", []Option{{Value: "a", Label: "A"}}, ""); !errors.Is(err, ErrInterrupted) {
		t.Errorf("Choice err = %v", err)
	}
	if _, err := c.YesNo("Go?"); !errors.Is(err, ErrInterrupted) {
		t.Errorf("YesNo err = %v", err)
	}
	if out.String() != "\n\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSurveyErr(t *testing.T) {
	if err := surveyErr(terminal.InterruptErr); !errors.Is(err, ErrInterrupted) {
		t.Errorf("surveyErr(interrupt) = %v", err)
	}
	other := errors.New("tty gone")
	if err := surveyErr(other); err != other {
		t.Errorf("surveyErr(other) = %v", err)
	}
}

func TestSilentAndVerbose(t *testing.T) {
	c, out, logs := newTestConsole("", ConsoleOptions{Silent: true})
	c.Info("hidden info")
	c.Verbose("hidden verbose")
	err := c.FinalSuccess("all done")
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 0 {
		t.Fatalf("FinalSuccess = %v", err)
	}
	if strings.Contains(out.String(), "hidden") || !strings.Contains(out.String(), "all done") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(logs.String(), "hidden info") {
		t.Errorf("silent messages are not logged: %q", logs)
	}

	c, out, _ = newTestConsole("", ConsoleOptions{Verbose: true})
	c.Verbose("details")
	c.Success("built")
	if !strings.Contains(out.String(), "details") || !strings.Contains(out.String(), "built") {
		t.Errorf("output = %q", out)
	}
}

func TestFailAndException(t *testing.T) {
	c, out, logs := newTestConsole("", ConsoleOptions{})
	err := c.Fail("Java is missing.")
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("Fail = %v", err)
	}
	c.Exception("Task crashed", errors.New("boom"))
	if !strings.Contains(out.String(), "Java is missing.") || !strings.Contains(out.String(), "Task crashed - boom") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(logs.String(), "boom") {
		t.Errorf("log = %q", logs)
	}
}

func TestProgressBar(t *testing.T) {
	c, out, logs := newTestConsole("", ConsoleOptions{})
	bar, err := c.StartProgressBar("archive", "pc")
	if err != nil {
		t.Fatalf("StartProgressBar: %v", err)
	}
	if _, err := c.StartProgressBar("again"); err == nil {
		t.Error("a second progress bar was started")
	}
	c.UpdateProgressBar("1/2", "3/4")
	bar.Done(0)
	bar.Halt(1)
	c.EndProgressBar()
	c.EndProgressBar()

	want := "archive: 1/2 - DONE\npc: 3/4 - HALT\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if !strings.Contains(logs.String(), "archive: 1/2 - DONE") {
		t.Errorf("log = %q", logs)
	}
	if _, err := c.StartProgressBar("next"); err != nil {
		t.Errorf("StartProgressBar after End: %v", err)
	}
}

func countingJob(n int) Job {
	return func(context.Context) progress.Steps {
		return progress.Run(n, func(tick func() bool) error {
			for range n {
				if !tick() {
					return nil
				}
			}
			return nil
		})
	}
}

func TestPool(t *testing.T) {
	c, out, _ := newTestConsole("", ConsoleOptions{})
	err := c.Pool(context.Background(), []string{"a", "b", "c"}, []Job{countingJob(2), countingJob(3), countingJob(1)})
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	for _, want := range []string{"a: 2/2 - DONE", "b: 3/3 - DONE", "c: 1/1 - DONE"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q misses %q", out, want)
		}
	}
}

func TestPoolFailure(t *testing.T) {
	cause := errors.New("disk full")
	failing := func(context.Context) progress.Steps { return progress.Fail(cause) }

	c, out, _ := newTestConsole("", ConsoleOptions{})
	err := c.Pool(context.Background(), []string{"a", "b"}, []Job{countingJob(2), failing})
	var fe *FutureError
	if !errors.As(err, &fe) || fe.Index != 1 || !errors.Is(err, cause) {
		t.Fatalf("Pool = %v, want FutureError for job 1", err)
	}
	if !strings.Contains(out.String(), "b: ? - ERROR") || !strings.Contains(out.String(), "a: ") || !strings.Contains(out.String(), " - HALT") {
		t.Errorf("output = %q", out)
	}
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _, _ := newTestConsole("", ConsoleOptions{})
	err := c.Pool(ctx, []string{"a"}, []Job{countingJob(5)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Pool = %v, want context.Canceled", err)
	}
}

func TestPoolMismatch(t *testing.T) {
	c, _, _ := newTestConsole("", ConsoleOptions{})
	if err := c.Pool(context.Background(), []string{"a", "b"}, []Job{countingJob(1)}); err == nil {
		t.Fatal("expected error for mismatched prompts")
	}
}

func TestBackground(t *testing.T) {
	c, out, _ := newTestConsole("", ConsoleOptions{})
	if err := c.Background(context.Background(), "compile", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Background: %v", err)
	}
	if !strings.Contains(out.String(), "s. - DONE") {
		t.Errorf("output = %q", out)
	}

	out.Reset()
	cause := errors.New("compile failed")
	err := c.Background(context.Background(), "compile", func(context.Context) error { return cause })
	if !errors.Is(err, cause) || !strings.Contains(out.String(), " - ERROR") {
		t.Errorf("Background = %v, output %q", err, out)
	}
}
