package task

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/odvcencio/rpdist/pkg/platform"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/report/reporttest"
)

type scope struct {
	platforms platform.Set
	ran       []string
}

func (s *scope) BuildPlatforms() platform.Set { return s.platforms }

func record(name string) Func[*scope] {
	return func(_ context.Context, s *scope, _ report.Reporter) (Result, error) {
		s.ran = append(s.ran, name)
		return Success, nil
	}
}

func names(tasks []*Task[*scope]) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func mustRegister(t *testing.T, reg *Registry[*scope], tasks ...*Task[*scope]) {
	t.Helper()
	if err := reg.Register(tasks...); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestOrderFollowsRequires(t *testing.T) {
	reg := NewRegistry[*scope]()
	mustRegister(t, reg,
		&Task[*scope]{Name: "A", Func: record("A"), Requires: []string{"B"}},
		&Task[*scope]{Name: "B", Func: record("B"), Requires: []string{"C"}},
		&Task[*scope]{Name: "C", Func: record("C")},
	)
	order, err := reg.Order()
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if got := names(order); !slices.Equal(got, []string{"C", "B", "A"}) {
		t.Errorf("Order = %v", got)
	}
}

func TestOrderDependenciesAndTies(t *testing.T) {
	reg := NewRegistry[*scope]()
	mustRegister(t, reg,
		&Task[*scope]{Name: "first", Func: record("first")},
		&Task[*scope]{Name: "second", Func: record("second")},
		&Task[*scope]{Name: "third", Func: record("third")},
		&Task[*scope]{Name: "extra", Func: record("extra"), Requires: []string{"first"}, Dependencies: []string{"third"}},
	)
	order, err := reg.Order()
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	// extra is placed right after first and ties with second, which was
	// registered earlier.
	if got := names(order); !slices.Equal(got, []string{"first", "second", "extra", "third"}) {
		t.Errorf("Order = %v", got)
	}
}

func TestOrderCycle(t *testing.T) {
	reg := NewRegistry[*scope]()
	mustRegister(t, reg,
		&Task[*scope]{Name: "A", Func: record("A"), Requires: []string{"B"}},
		&Task[*scope]{Name: "B", Func: record("B"), Requires: []string{"C"}},
		&Task[*scope]{Name: "C", Func: record("C"), Requires: []string{"A"}},
		&Task[*scope]{Name: "D", Func: record("D")},
	)
	_, err := reg.Order()
	var gerr *GraphError
	if !errors.As(err, &gerr) || !errors.Is(err, ErrCycle) {
		t.Fatalf("Order = %v, want cycle error", err)
	}
	want := "The following tasks use each other in a loop: 'A', 'B', 'C'. This is not allowed."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
}

func TestOrderUnknownTask(t *testing.T) {
	reg := NewRegistry[*scope]()
	mustRegister(t, reg, &Task[*scope]{Name: "A", Func: record("A"), Dependencies: []string{"ghost"}})
	_, err := reg.Order()
	if !errors.Is(err, ErrInvalidGraph) || !strings.Contains(err.Error(), "'ghost'") {
		t.Fatalf("Order = %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry[*scope]()
	mustRegister(t, reg, &Task[*scope]{Name: "A", Func: record("A")})
	if err := reg.Register(&Task[*scope]{Name: "A", Func: record("A")}); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("Register = %v", err)
	}
	if reg.Len() != 1 || reg.Get("A") == nil || reg.Get("B") != nil {
		t.Error("registry contents are wrong")
	}
}

func TestSequence(t *testing.T) {
	tasks := Sequence(
		&Task[*scope]{Name: "a"},
		&Task[*scope]{Name: "b"},
		&Task[*scope]{Name: "c", Requires: []string{"a"}},
		&Task[*scope]{Name: "d"},
	)
	if tasks[0].Requires != nil || !slices.Equal(tasks[1].Requires, []string{"a"}) ||
		!slices.Equal(tasks[2].Requires, []string{"a"}) || !slices.Equal(tasks[3].Requires, []string{"c"}) {
		t.Errorf("Sequence edges are wrong")
	}
}

func TestKind(t *testing.T) {
	noWeb := MustKind("-web")
	win, web := platform.Of(platform.Windows), platform.Of(platform.Web)
	if !noWeb.Matches(win) || noWeb.Matches(web) {
		t.Error("-web kind matched wrongly")
	}
	if !System().Matches(web) || !System().IsSystem() {
		t.Error("system kind must always match")
	}
	var all Kind
	if !all.Matches(web) || all.String() != "all" {
		t.Error("zero kind must match every platform")
	}
	if !MustKind("mac").Matches(0) {
		t.Error("an empty build must not filter tasks")
	}
	if _, err := ParseKind("linux amiga"); err == nil {
		t.Error("expected error for an unknown platform")
	}
	if got := MustKind("linux mac").String(); got != "linux mac" {
		t.Errorf("String() = %q", got)
	}
}

func TestResult(t *testing.T) {
	if FromBool(true) != Success || FromBool(false) != Failure {
		t.Error("FromBool is wrong")
	}
	if !Skipped.OK() || Failure.OK() || Exception.OK() {
		t.Error("OK is wrong")
	}
	if KeyboardInterrupt.String() != "KeyboardInterrupt" || Result(9).String() != "Result(9)" {
		t.Error("String is wrong")
	}
}

func runTasks(t *testing.T, s *scope, tasks ...*Task[*scope]) (int, *reporttest.Reporter) {
	t.Helper()
	reg := NewRegistry[*scope]()
	mustRegister(t, reg, tasks...)
	rep := &reporttest.Reporter{}
	code := NewRunner(reg, s, rep, report.DiscardLogger()).Run(context.Background())
	return code, rep
}

func TestRunnerSkipsOtherPlatforms(t *testing.T) {
	s := &scope{platforms: platform.Of(platform.Windows)}
	code, rep := runTasks(t, s,
		&Task[*scope]{Name: "win", Description: "Windows work...", Kind: MustKind("win"), Func: record("win")},
		&Task[*scope]{Name: "mac", Description: "Mac work...", Kind: MustKind("mac"), Func: record("mac")},
		&Task[*scope]{Name: "always", Kind: System(), Func: record("always")},
	)
	if code != 0 {
		t.Fatalf("code = %d", code)
	}
	if !slices.Equal(s.ran, []string{"win", "always"}) {
		t.Errorf("ran = %v", s.ran)
	}
	if rep.Contains("info", "Mac work") || !rep.Contains("info", "Windows work...") {
		t.Errorf("messages = %v", rep.Messages())
	}
	if !rep.Contains("info", "Build has ended successfully") {
		t.Errorf("messages = %v", rep.Messages())
	}
}

func TestRunnerException(t *testing.T) {
	s := &scope{}
	failing := func(_ context.Context, _ *scope, r report.Reporter) (Result, error) {
		if _, err := r.StartProgressBar("work"); err != nil {
			return Failure, err
		}
		return Success, errors.New("disk on fire")
	}
	code, rep := runTasks(t, s,
		&Task[*scope]{Name: "before", Func: record("before")},
		&Task[*scope]{Name: "broken", Func: failing},
		&Task[*scope]{Name: "after", Func: record("after")},
	)
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if !slices.Equal(s.ran, []string{"before"}) {
		t.Errorf("ran = %v", s.ran)
	}
	if !rep.Contains("exception", "disk on fire") || rep.BarOpen() {
		t.Errorf("messages = %v, bar open = %v", rep.Messages(), rep.BarOpen())
	}
	if !rep.Contains("info", "Build has ended with failure") {
		t.Errorf("messages = %v", rep.Messages())
	}
}

func TestRunnerPanicIsException(t *testing.T) {
	panicking := func(context.Context, *scope, report.Reporter) (Result, error) { panic("oops") }
	tk := &Task[*scope]{Name: "p", Func: panicking}
	rep := &reporttest.Reporter{}
	if got := tk.Run(context.Background(), &scope{}, rep, report.DiscardLogger().WithField("part", "test")); got != Exception {
		t.Fatalf("Run = %v", got)
	}
	if !rep.Contains("exception", "oops") {
		t.Errorf("messages = %v", rep.Messages())
	}
}

func TestRunnerExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		res  Result
		code int
	}{
		{"final success", &report.ExitError{Code: 0}, Failure, 0},
		{"fail", &report.ExitError{Code: 1}, Failure, 1},
		{"interrupt", report.ErrInterrupted, Failure, 2},
		{"cancelled", context.Canceled, Failure, 2},
		{"plain failure", nil, Failure, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &scope{}
			stop := func(context.Context, *scope, report.Reporter) (Result, error) { return tt.res, tt.err }
			code, rep := runTasks(t, s,
				&Task[*scope]{Name: "stop", Func: stop},
				&Task[*scope]{Name: "after", Func: record("after")},
			)
			if code != tt.code {
				t.Errorf("code = %d, want %d", code, tt.code)
			}
			if len(s.ran) != 0 {
				t.Errorf("ran = %v", s.ran)
			}
			if rep.Contains("exception", "") {
				t.Errorf("unexpected exception: %v", rep.Messages())
			}
		})
	}
}

func TestRunnerCycleFails(t *testing.T) {
	code, rep := runTasks(t, &scope{},
		&Task[*scope]{Name: "A", Func: record("A"), Requires: []string{"B"}},
		&Task[*scope]{Name: "B", Func: record("B"), Requires: []string{"A"}},
	)
	if code != 1 || !rep.Contains("exception", "loop") {
		t.Fatalf("code = %d, messages = %v", code, rep.Messages())
	}
}
