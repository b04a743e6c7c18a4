package report

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// RedrawInterval is how often a running pool redraws its display.
const RedrawInterval = 330 * time.Millisecond

// RunPool runs jobs concurrently, one progress entity per job. The first
// failing job marks its entity with an error, halts the others and is
// returned as a *FutureError.
func RunPool(ctx context.Context, host ProgressHost, prompts []string, jobs []Job) error {
	if len(prompts) != len(jobs) {
		return fmt.Errorf("pool: %d prompts for %d jobs", len(prompts), len(jobs))
	}
	bar, err := host.StartProgressBar(prompts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	done := make(chan error, 1)
	go func() {
		for i, job := range jobs {
			g.Go(func() (err error) {
				defer func() {
					if p := recover(); p != nil {
						err = &FutureError{Index: i, Err: fmt.Errorf("panic: %v", p)}
					}
				}()
				for step, err := range job(gctx) {
					if err != nil {
						return &FutureError{Index: i, Err: err}
					}
					bar.Update(i, step.String())
					if gctx.Err() != nil {
						return gctx.Err()
					}
				}
				bar.Done(i)
				return nil
			})
		}
		done <- g.Wait()
	}()

	ticker := time.NewTicker(RedrawInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			var fe *FutureError
			switch {
			case errors.As(err, &fe):
				bar.Error(fe.Index, true)
			case err != nil:
				for i, e := range bar.Entities() {
					if !e.Status.Terminal() {
						bar.Halt(i)
					}
				}
			}
			host.EndProgressBar()
			return err
		case <-ticker.C:
			host.UpdateProgressBar()
		}
	}
}

// RunBackground runs fn while showing the elapsed time.
func RunBackground(ctx context.Context, host ProgressHost, prompt string, fn func(context.Context) error) error {
	bar, err := host.StartProgressBar(prompt)
	if err != nil {
		return err
	}
	start := time.Now()
	elapsed := func() { bar.Update(0, fmt.Sprintf("%.3fs.", time.Since(start).Seconds())) }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn(gctx)
	})
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	ticker := time.NewTicker(RedrawInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			elapsed()
			if err != nil {
				bar.Error(0, false)
			} else {
				bar.Done(0)
			}
			host.EndProgressBar()
			return err
		case <-ticker.C:
			elapsed()
			host.UpdateProgressBar()
		}
	}
}
