//go:build !unix

package main

import (
	"context"

	"github.com/jupiterclapton/cenackle/client/internal/core/services"
)

// Pas de SIGUSR1 ici : le focus passe par POST /focus.
func notifyFocus(ctx context.Context, monitor *services.Monitor) {}
