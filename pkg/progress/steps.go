// Package progress models long running work as lazy streams of steps and
// tracks the state shown by multi-entry progress displays.
package progress

import (
	"fmt"
	"iter"
)

// Step reports that Completed out of Total units of work are finished.
type Step struct {
	Completed int
	Total     int
}

func (s Step) String() string { return fmt.Sprintf("%d/%d", s.Completed, s.Total) }

// Steps is a pull based stream of progress. Ranging over it performs the
// work; a non-nil error ends the stream. Every range starts the work over,
// and stopping early abandons it.
type Steps iter.Seq2[Step, error]

// Run adapts body into Steps. body calls tick after each unit of work and
// must return as soon as tick reports false.
func Run(total int, body func(tick func() bool) error) Steps {
	return func(yield func(Step, error) bool) {
		completed := 0
		stopped := false
		tick := func() bool {
			if stopped {
				return false
			}
			completed++
			if !yield(Step{Completed: completed, Total: total}, nil) {
				stopped = true
			}
			return !stopped
		}
		if err := body(tick); err != nil && !stopped {
			yield(Step{Completed: completed, Total: total}, err)
		}
	}
}

// Fail returns a stream that only reports err.
func Fail(err error) Steps {
	return func(yield func(Step, error) bool) {
		yield(Step{}, err)
	}
}

// Chain runs parts one after another and reports their steps as one
// stream of total units.
func Chain(total int, parts ...Steps) Steps {
	return func(yield func(Step, error) bool) {
		offset := 0
		for _, part := range parts {
			count := 0
			for step, err := range part {
				if err != nil {
					yield(Step{Completed: offset + count, Total: total}, err)
					return
				}
				count = step.Completed
				if !yield(Step{Completed: offset + count, Total: total}, nil) {
					return
				}
			}
			offset += count
		}
	}
}

// Drain performs the work of steps and returns the first error.
func Drain(steps Steps) error {
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

// Count performs the work of steps and returns the number of steps seen.
func Count(steps Steps) (int, error) {
	n := 0
	for _, err := range steps {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
