package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/odvcencio/rpdist/pkg/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()

	var exit *report.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
		os.Exit(exit.Code)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
