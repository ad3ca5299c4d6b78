package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dentscan/dentclaim/account"
	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/config"
	dbadapter "github.com/dentscan/dentclaim/db"
	"github.com/dentscan/dentclaim/logging"
	"github.com/dentscan/dentclaim/mail"
	"github.com/dentscan/dentclaim/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Version = "dev"

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "dentclaim",
		Short:         "Dent claims backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config/config.yaml", "config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the process-wide state shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	cache  cache.Cache
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// ---- Logger ----
	logger, err := logging.New(cfg.Server.Debug)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	return &app{cfg: cfg, logger: logger, db: db, cache: c}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	switch cl := a.cache.(type) {
	case interface{ Close() error }:
		_ = cl.Close()
	case interface{ Close() }:
		cl.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) services() (*account.Users, *account.Admins) {
	sec := a.cfg.Security
	notifier := mail.New(a.cfg.Mail, a.logger)
	otps := account.NewOTPStore(a.cache, sec.OTPTTL, sec.OTPMaxAttempts)
	sessions := account.NewSessions(a.cache, sec.JWTSecret)
	return account.NewUsers(a.db, otps, sessions, notifier, sec, a.logger),
		account.NewAdmins(a.db, a.cache, otps, sessions, notifier, sec, a.logger)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			a.logger.Info("schema up to date")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the configured default admin if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			_, admins := a.services()
			created, err := admins.Seed(context.Background(), a.cfg.Admin)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			if !created {
				a.logger.Info("default admin already present", zap.String("email", a.cfg.Admin.Email))
			}
			return nil
		},
	}
}
