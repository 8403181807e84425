package main

import (
	"fmt"

	"github.com/beastsupply/storefront/internal/catalog"
	"github.com/beastsupply/storefront/internal/order/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the order store and catalog schema migrations, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := postgresCredentials()
		orders, err := repository.NewRepository(creds)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer orders.Close()
		if err := orders.RunMigrations(creds); err != nil {
			return err
		}
		log.Info("order store migrated", zap.String("path", creds.MigrationsDirPath))

		products, err := catalog.NewRepository(cfg.CatalogDBPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer products.Close()
		if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
			return err
		}
		log.Info("catalog migrated", zap.String("path", cfg.CatalogMigrationsPath))
		return nil
	},
}

func postgresCredentials() *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
}
