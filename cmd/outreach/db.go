package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/outreach/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Outreach database",
		Long:  "Migrates the queue, history and tenant settings tables and seeds tenants from config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Outreach config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database\n", cfg.Database.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedTenants(gormDB, cfg.Tenants); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d tenants:", len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		fmt.Fprintf(out, " %s", t.Slug)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "\nOutreach database initialized successfully.")
	return nil
}
