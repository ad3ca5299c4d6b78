package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dentscan/dentclaim/api/rest"
	"github.com/dentscan/dentclaim/audit"
	"github.com/dentscan/dentclaim/claim"
	"github.com/dentscan/dentclaim/logging"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/dentscan/dentclaim/scheduler"
	"github.com/dentscan/dentclaim/vehicle"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownGrace = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	// ---- API log ----
	apiLogger, closeAPILog := logging.NewAPILogger(cfg.Log)
	defer func() { _ = closeAPILog() }()

	var persisters []reqlog.Persister
	var auditSvc *audit.Service
	if cfg.Log.PersistAPILogs {
		auditSvc = audit.New(a.db, logger)
		persisters = append(persisters, auditSvc)
	}
	apiLog := reqlog.NewWriter(apiLogger, cfg.Server.Port, persisters...)

	// ---- Services ----
	users, admins := a.services()
	if _, err := admins.Seed(context.Background(), cfg.Admin); err != nil {
		logger.Warn("default admin not seeded", zap.Error(err))
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	if auditSvc != nil && cfg.Log.RetentionDays > 0 {
		retention := time.Duration(cfg.Log.RetentionDays) * 24 * time.Hour
		sched.AddTicker("api_log_retention", 6*time.Hour, func(ctx context.Context) error {
			n, err := auditSvc.PruneBefore(ctx, time.Now().Add(-retention))
			if err == nil && n > 0 {
				logger.Info("api logs pruned", zap.Int64("rows", n))
			}
			return err
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := rest.NewRouter(rest.Deps{
		Config:   cfg,
		DB:       a.db,
		Cache:    a.cache,
		Logger:   logger,
		APILog:   apiLog,
		Claims:   claim.NewService(a.db, logger),
		Users:    users,
		Admins:   admins,
		Vehicles: vehicle.NewClient(cfg.Vehicle, a.cache, logger),
		Sched:    sched,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if auditSvc != nil {
		auditSvc.Stop(ctx)
	}
	return nil
}
