package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a database migration command (up, down, status, version, ...)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return nil
		},
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrationsFunc(cli.db, args[0], args[1:]...)
		},
	}
}
