package task

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/rpdist/pkg/report"
)

// Runner executes the tasks of a registry one at a time.
type Runner[C Scope] struct {
	registry *Registry[C]
	scope    C
	reporter report.Reporter
	log      *logrus.Entry
}

func NewRunner[C Scope](registry *Registry[C], scope C, reporter report.Reporter, log *logrus.Logger) *Runner[C] {
	return &Runner[C]{
		registry: registry,
		scope:    scope,
		reporter: reporter,
		log:      log.WithField("part", "runner"),
	}
}

// Run executes tasks until one of them ends the build and returns the
// process exit code: 0 on success, 2 when interrupted, 1 otherwise.
func (rn *Runner[C]) Run(ctx context.Context) int {
	start := time.Now()
	code := rn.run(ctx)

	elapsed := time.Since(start).Seconds()
	if code == 0 {
		rn.reporter.Info(fmt.Sprintf("Build has ended successfully, took %.3fs.", elapsed))
	} else {
		rn.reporter.Info(fmt.Sprintf("Build has ended with failure, took %.3fs.", elapsed))
	}
	return code
}

func (rn *Runner[C]) run(ctx context.Context) int {
	tasks, err := rn.registry.Order()
	if err != nil {
		rn.reporter.Exception("Can not order build tasks", err)
		return 1
	}
	if rn.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		rn.log.Debug("Build tasks:")
		for _, t := range tasks {
			rn.log.Debugf("    %s", t)
		}
	}

	for _, t := range tasks {
		if ctx.Err() != nil {
			return 2
		}
		switch result := t.Run(ctx, rn.scope, rn.reporter, rn.log); result {
		case Success, Skipped:
			continue
		case SuccessExit:
			return 0
		case KeyboardInterrupt:
			return 2
		default:
			return 1
		}
	}
	return 0
}
