package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// stopper is a named shutdown hook.
type stopper struct {
	name string
	fn   func(context.Context) error
}

// drain waits for in-flight model calls after readiness starts failing.
// A second signal cuts the wait short.
func drain(L log.Logger, seconds int) {
	ctx := context.Background()
	L.Info(ctx, "draining", "drain_seconds", seconds)

	force := make(chan os.Signal, 1)
	signal.Notify(force, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(force)

	select {
	case <-time.After(time.Duration(seconds) * time.Second):
		L.Info(ctx, "drain period complete")
	case <-force:
		L.Warn(ctx, "second signal received, skipping drain")
	}
}

// shutdown runs each stopper in order, giving each an equal slice of the
// total budget.
func shutdown(L log.Logger, budgetSeconds int, stoppers []stopper) {
	if len(stoppers) == 0 {
		return
	}
	budget := time.Duration(budgetSeconds) * time.Second
	each := budget / time.Duration(len(stoppers))

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for _, s := range stoppers {
		sctx, scancel := context.WithTimeout(ctx, each)
		if err := s.fn(sctx); err != nil {
			L.Error(context.Background(), err, s.name+" shutdown")
		}
		scancel()
	}
}
