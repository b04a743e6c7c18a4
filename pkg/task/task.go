// Package task orders and runs the steps of a build. Tasks declare the
// tasks they need and the tasks they precede; a Registry turns those edges
// into a stable sequence and a Runner executes it.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/rpdist/pkg/platform"
	"github.com/odvcencio/rpdist/pkg/report"
)

// Result is the outcome of a task. Positive results let the build go on.
type Result int

const (
	KeyboardInterrupt Result = -3
	FailureExit       Result = -2
	Exception         Result = -1
	Failure           Result = 0
	Success           Result = 1
	Skipped           Result = 2
	SuccessExit       Result = 3
)

var resultNames = map[Result]string{
	KeyboardInterrupt: "KeyboardInterrupt",
	FailureExit:       "FailureExit",
	Exception:         "Exception",
	Failure:           "Failure",
	Success:           "Success",
	Skipped:           "Skipped",
	SuccessExit:       "SuccessExit",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

func (r Result) OK() bool { return r > 0 }

// FromBool maps true to Success and false to Failure.
func FromBool(ok bool) Result {
	if ok {
		return Success
	}
	return Failure
}

// Kind decides when a task runs. The zero Kind runs for every platform.
type Kind struct {
	system    bool
	platforms platform.Set
}

// System returns the kind of tasks that always run.
func System() Kind { return Kind{system: true} }

// Platforms returns the kind of tasks that run when one of s is built.
func Platforms(s platform.Set) Kind { return Kind{platforms: s} }

// ParseKind parses "system", "all", a list of platforms, or a list
// prefixed with "-" naming the platforms to leave out.
func ParseKind(s string) (Kind, error) {
	if s == "system" {
		return System(), nil
	}
	set, err := platform.ParseSpec(s)
	if err != nil {
		return Kind{}, fmt.Errorf("task kind %q: %w", s, err)
	}
	return Platforms(set), nil
}

// MustKind is ParseKind for kinds written in source.
func MustKind(s string) Kind {
	k, err := ParseKind(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Kind) IsSystem() bool { return k.system }

// Matches reports whether a task of this kind runs when active is built.
// Nothing is filtered before the build platforms are known.
func (k Kind) Matches(active platform.Set) bool {
	if k.system || active.Empty() {
		return true
	}
	set := k.platforms
	if set.Empty() {
		set = platform.All
	}
	return set.Intersects(active)
}

func (k Kind) String() string {
	switch {
	case k.system:
		return "system"
	case k.platforms.Empty(), k.platforms == platform.All:
		return "all"
	}
	return k.platforms.String()
}

// Scope is the build state shared by the tasks of a run.
type Scope interface {
	BuildPlatforms() platform.Set
}

// Func is the body of a task. Returning an *report.ExitError ends the
// build; any other error is reported as an exception.
type Func[C Scope] func(ctx context.Context, c C, r report.Reporter) (Result, error)

// Task is a named step of a build.
type Task[C Scope] struct {
	Name string
	// Description is shown when the task starts. Empty tasks run
	// silently.
	Description string
	Kind        Kind
	Func        Func[C]
	// Requires names the tasks that run before this one.
	Requires []string
	// Dependencies names the tasks that run after this one.
	Dependencies []string
}

func (t *Task[C]) String() string { return "<Task: " + t.Name + ">" }

// Run executes the task unless its kind excludes the current build.
func (t *Task[C]) Run(ctx context.Context, c C, r report.Reporter, log *logrus.Entry) Result {
	log = log.WithField("task", t.Name)
	if !t.Kind.Matches(c.BuildPlatforms()) {
		log.Debug("skipped")
		return Skipped
	}
	start := time.Now()
	log.Debug("started")
	if t.Description != "" {
		r.Info(t.Description)
	}

	result, err := t.call(ctx, c, r)
	if err != nil {
		result = t.fromError(err, r)
	}
	log.WithField("elapsed", fmt.Sprintf("%.3fs", time.Since(start).Seconds())).
		Debugf("ended with %s", result)
	return result
}

func (t *Task[C]) call(ctx context.Context, c C, r report.Reporter) (result Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return t.Func(ctx, c, r)
}

func (t *Task[C]) fromError(err error, r report.Reporter) Result {
	var exit *report.ExitError
	switch {
	case errors.As(err, &exit):
		if exit.Code == 0 {
			return SuccessExit
		}
		return FailureExit
	case errors.Is(err, report.ErrInterrupted), errors.Is(err, context.Canceled):
		return KeyboardInterrupt
	}
	r.EndProgressBar()
	r.Exception(fmt.Sprintf("Exception in %s", t), err)
	return Exception
}

// Sequence makes every task without edges require the task before it, so
// that tasks other providers attach to keep their relative order.
func Sequence[C Scope](tasks ...*Task[C]) []*Task[C] {
	for i, t := range tasks {
		if i > 0 && len(t.Requires) == 0 && len(t.Dependencies) == 0 {
			t.Requires = []string{tasks[i-1].Name}
		}
	}
	return tasks
}
