package main

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the SQL schema migrations",
		Long: `Apply, roll back or list the embedded SQL migrations. The mongo
store creates its indexes on start and has nothing to migrate.`,
	}

	cmd.AddCommand(newMigrateDirectionCmd(accounts.MigrateUp, "Apply pending migrations"))
	cmd.AddCommand(newMigrateDirectionCmd(accounts.MigrateDown, "Roll back the last migration"))
	cmd.AddCommand(newMigrateDirectionCmd(accounts.MigrateStatus, "List applied and pending migrations"))

	return cmd
}

func newMigrateDirectionCmd(direction accounts.MigrationDirection, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg, direction)
		},
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, direction accounts.MigrationDirection) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Database.Driver == config.DriverMongo {
		return goerrors.New("migrations only apply to sql drivers", goerrors.CategoryBadInput)
	}

	repo, err := accounts.OpenRepositoryManager(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	return repo.Migrate(ctx, direction)
}
