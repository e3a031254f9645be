package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavadmin/pavadmin/internal/api"
	"github.com/pavadmin/pavadmin/internal/metrics"
	"github.com/pavadmin/pavadmin/internal/rcon"
	"github.com/pavadmin/pavadmin/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Maintain the RCON session and serve the HTTP front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := state.NewEventLog(cfg.Events.Capacity)
	observers := []rcon.Observer{events}
	var reg *metrics.Registry
	if cfg.Metrics.Enable {
		reg = metrics.NewRegistry(cfg.RCon.Host)
		observers = append(observers, reg)
	}

	client := rcon.NewClient(rconConfig(cfg), logger, rcon.Observers(observers...))
	defer client.Close()

	sup := rcon.NewSupervisor(client, cfg.RCon.ReconnectInterval, cfg.RCon.ReconnectMax)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	opts := api.Options{Events: events}
	if reg != nil {
		opts.Metrics = reg.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}
	srv := api.NewServer(cfg.API.Listen, client, opts, logger)
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	logger.Info("pavadmin running",
		zap.String("rcon", client.Addr()),
		zap.String("listen", cfg.API.Listen))

	var err error
	select {
	case <-ctx.Done():
	case <-srv.Quit():
		logger.Info("quit requested")
	case err = <-srvErr:
		logger.Error("http server failed", zap.Error(err))
	}

	logger.Info("shutting down")
	cancel()
	if shutdownErr := srv.Shutdown(context.Background()); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	<-supDone
	return err
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
