package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/torrentvault/pkg/app"
	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list all registered database types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")

			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+string(dbType))
			}
		},
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the listing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *app.Core) error {
				if err := model.AutoMigrate(c.Storage.GetDBClient().GetDB().WithContext(cmd.Context())); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "migrated", c.Config.DB.GetDBType())

				return nil
			})
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
