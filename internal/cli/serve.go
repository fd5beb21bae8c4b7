package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/printguard/internal/server"
	"github.com/ogulcanaydogan/printguard/pkg/metrics"
	"github.com/ogulcanaydogan/printguard/pkg/monitor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Check printers on a schedule and serve state and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addRecipientFlags(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().Duration("interval", 0, "Time between checks (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRecipientFlags(cmd, cfg)
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Serve.Listen = listen
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Serve.Interval = interval
	}
	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	inv, err := cfg.BuildInventory()
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	mon, store, err := initMonitor(cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer store.Close()

	apiServer := server.NewServer(mon, recorder.Handler(), logger)
	srv := &http.Server{
		Addr:         cfg.Serve.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	runner := monitor.RunnerFunc(func(ctx context.Context) error {
		_, err := mon.Run(ctx, inv)
		if cfg.Metrics.Textfile != "" {
			if werr := recorder.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
				logger.Error("write metrics textfile", "error", werr)
			}
		}
		return err
	})
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		monitor.NewScheduler(cfg.Serve.Interval, runner, logger).Start(ctx)
	}()

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "listen", cfg.Serve.Listen, "interval", cfg.Serve.Interval.String(), "printers", inv.Len())
		fmt.Fprintf(os.Stderr, "printguard listening on %s\n", cfg.Serve.Listen)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("shutdown error: %w", err)
		}
	}

	// Stop scheduling and wait for an in-flight run to save its state.
	cancel()
	<-schedDone

	logger.Info("server stopped")
	return serveErr
}
