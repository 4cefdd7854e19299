package main

import (
	"context"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/smartwake/internal/server"
)

// Daemon runs the orchestrator's timers and the HTTP API until interrupted.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	s, err := r.app(ctx)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	}

	router := r.router(s)
	r.logger.Debug("routes registered", "patterns", router.Routes())

	srv := server.New(router, server.Opts{
		Addr:            addr,
		ShutdownTimeout: cmd.Duration("shutdown-timeout"),
		Logger:          r.logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.orch.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	r.logger.Info("smartwake daemon started", "addr", addr)
	err = g.Wait()
	r.logger.Info("smartwake daemon stopped")
	return err
}

// router mounts the JSON API and the metrics endpoint behind the standard middleware.
func (r *Runner) router(s *stack) *server.BasicRouter {
	router := server.NewBasicRouter()
	router.Use(server.RequestID(), server.Logging(r.logger), server.Recover(r.logger))
	server.NewAPI(s.orch, s.history, r.logger).Register(router)
	router.Handler(server.NewMetricsHandler(s.metrics))
	return router
}
