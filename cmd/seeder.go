package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-tickets/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tickets/internal/category/postgres"
	"github.com/frahmantamala/expense-tickets/internal/siteconfig"
	siteconfigPostgres "github.com/frahmantamala/expense-tickets/internal/siteconfig/postgres"
	"github.com/frahmantamala/expense-tickets/internal/user"
	userPostgres "github.com/frahmantamala/expense-tickets/internal/user/postgres"
	"github.com/frahmantamala/expense-tickets/pkg/logger"
)

// seedCmd is safe to repeat. Baseline roles are upserted, so their permission
// sets are reset to the defaults; existing categories and settings are kept.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed baseline roles, categories, site settings and the bootstrap admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		lg := logger.LoggerWrapper()

		db, sqlDB, err := initDB(cfg.Database, lg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer sqlDB.Close()

		roles, err := BootstrapRoles(ctx, db, cfg.RoleCache.Size, lg)
		if err != nil {
			return err
		}
		lg.Info("baseline roles seeded")

		if err := category.NewService(categoryPostgres.NewCategoryRepository(db), lg).EnsureDefaults(ctx); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		lg.Info("ticket categories seeded")

		if err := siteconfig.NewService(siteconfigPostgres.NewSiteConfigRepository(db), lg).EnsureDefaults(ctx); err != nil {
			return fmt.Errorf("seed site config: %w", err)
		}
		lg.Info("site config defaults seeded")

		email, password := cfg.Security.BootstrapAdminEmail, cfg.Security.BootstrapAdminPass
		if email == "" || password == "" {
			lg.Warn("bootstrap admin not configured, skipping")
			return nil
		}

		users := user.NewService(userPostgres.NewUserRepository(db), roles, cfg.Security.BCryptCost, lg)
		created, err := users.EnsureAdmin(ctx, email, password)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			lg.Info("bootstrap admin created", "email", email)
		} else {
			lg.Info("bootstrap admin already exists", "email", email)
		}
		return nil
	},
}
