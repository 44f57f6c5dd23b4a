//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jupiterclapton/cenackle/client/internal/core/services"
)

// notifyFocus : `kill -USR1 <pid>` équivaut à un retour au premier plan.
func notifyFocus(ctx context.Context, monitor *services.Monitor) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				monitor.Focus()
			}
		}
	}()
}
