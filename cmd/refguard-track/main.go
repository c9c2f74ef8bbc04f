// Command refguard-track serves a reference redirect endpoint for local smoke tests
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"refguard/internal/modkit"
	"refguard/internal/platform/config"
	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	phttp "refguard/internal/platform/net/http"
	"refguard/internal/platform/net/middleware"
	"refguard/internal/platform/version"

	trackmod "refguard/internal/services/track/module"
)

func main() { os.Exit(run()) }

func run() int {
	root := config.New()
	l := logger.Named("refguard-track")

	deps, err := modkit.NewDeps(root)
	if err != nil {
		l.Error().Err(err).Msg("invalid configuration")
		return perr.Exit(err)
	}

	// reads TRACK_PORT
	srv := phttp.NewServer(root.Prefix("TRACK_"))
	r := srv.Router()
	r.Use(middleware.Defaults()...)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) { phttp.RespondOK(w, req, version.Info("refguard-track")) })

	mod := trackmod.New(deps, trackmod.FromConfig(root, deps.Ref))
	mod.MountRoutes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
		return perr.ExitInvariant
	}
	return perr.ExitOK
}
