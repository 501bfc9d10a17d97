// Package cmd is the base package for the executables built from go-replica.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

var (
	mu                      sync.RWMutex
	globalCtx, globalCancel = context.WithCancel(context.Background())
)

// Ctx returns global context.
func Ctx() context.Context {
	mu.RLock()
	defer mu.RUnlock()

	return globalCtx
}

// Cancel returns global cancellation function.
func Cancel() func() {
	mu.RLock()
	defer mu.RUnlock()

	return globalCancel
}

// HandleInterrupt cancels the global context on the first interrupt or
// termination signal. The returned function stops listening.
func HandleInterrupt(logger *zap.Logger) func() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-signalChan:
			logger.Info("received signal, stopping", zap.Stringer("signal", sig))
			Cancel()()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(signalChan)
		close(done)
	}
}
