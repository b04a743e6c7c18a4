package task

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidGraph = errors.New("invalid task graph")
	ErrCycle        = errors.New("task cycle")
)

// GraphError wraps deterministic ordering failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

// Registry collects the tasks of one run.
type Registry[C Scope] struct {
	tasks []*Task[C]
	index map[string]int
}

func NewRegistry[C Scope]() *Registry[C] {
	return &Registry[C]{index: make(map[string]int)}
}

// Register adds tasks in order. A name can only be registered once.
func (r *Registry[C]) Register(tasks ...*Task[C]) error {
	for _, t := range tasks {
		if t.Name == "" || t.Func == nil {
			return invalidf("task %q needs a name and a function", t.Name)
		}
		if _, ok := r.index[t.Name]; ok {
			return invalidf("%q already registered as a task", t.Name)
		}
		r.index[t.Name] = len(r.tasks)
		r.tasks = append(r.tasks, t)
	}
	return nil
}

func (r *Registry[C]) Len() int { return len(r.tasks) }

// Get returns the task called name, or nil.
func (r *Registry[C]) Get(name string) *Task[C] {
	if i, ok := r.index[name]; ok {
		return r.tasks[i]
	}
	return nil
}

// Order returns the tasks in execution order. Every task runs after the
// tasks it requires and before its dependencies. A task without
// prerequisites keeps its registration position; a task with them is
// placed one after the latest of them. Ties keep registration order.
func (r *Registry[C]) Order() ([]*Task[C], error) {
	n := len(r.tasks)
	// before[i] lists the tasks that have to finish before task i.
	before := make([][]int, n)
	after := make([][]int, n)
	edge := func(first, then int) {
		if !slices.Contains(before[then], first) {
			before[then] = append(before[then], first)
			after[first] = append(after[first], then)
		}
	}

	for i, t := range r.tasks {
		for _, name := range t.Requires {
			j, ok := r.index[name]
			if !ok {
				return nil, invalidf("Task '%s' requires unknown task '%s'.", t.Name, name)
			}
			edge(j, i)
		}
		for _, name := range t.Dependencies {
			j, ok := r.index[name]
			if !ok {
				return nil, invalidf("Task '%s' depends on unknown task '%s'.", t.Name, name)
			}
			edge(i, j)
		}
	}

	if err := r.checkCycles(before, after); err != nil {
		return nil, err
	}

	place := make([]int, n)
	placed := make([]bool, n)
	var placeOf func(i int) int
	placeOf = func(i int) int {
		if placed[i] {
			return place[i]
		}
		p := i
		if len(before[i]) > 0 {
			p = 0
			for _, j := range before[i] {
				p = max(p, placeOf(j)+1)
			}
		}
		place[i], placed[i] = p, true
		return p
	}

	order := make([]int, n)
	for i := range n {
		placeOf(i)
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return place[a] - place[b] })

	out := make([]*Task[C], n)
	for k, i := range order {
		out[k] = r.tasks[i]
	}
	return out, nil
}

// checkCycles peels tasks whose prerequisites are all peeled. Whatever is
// left takes part in, or waits on, a loop.
func (r *Registry[C]) checkCycles(before, after [][]int) error {
	pending := make([]int, len(before))
	var work []int
	for i := range before {
		pending[i] = len(before[i])
		if pending[i] == 0 {
			work = append(work, i)
		}
	}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		for _, j := range after[i] {
			pending[j]--
			if pending[j] == 0 {
				work = append(work, j)
			}
		}
	}

	var loop []string
	for i, left := range pending {
		if left > 0 {
			loop = append(loop, "'"+r.tasks[i].Name+"'")
		}
	}
	if len(loop) == 0 {
		return nil
	}
	slices.Sort(loop)
	return &GraphError{
		Kind: ErrCycle,
		Msg:  fmt.Sprintf("The following tasks use each other in a loop: %s. This is not allowed.", strings.Join(loop, ", ")),
	}
}
