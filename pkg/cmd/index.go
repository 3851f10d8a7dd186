package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/torrentvault/pkg/app"
	"github.com/yeisme/torrentvault/pkg/internal/index"
)

var errIndexDisabled = errors.New("full-text index is disabled or unavailable (search.use_full_text_index)")

var (
	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Full-text index related commands",
	}

	indexListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered index types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered index types:")

			for _, t := range index.RegisteredTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	indexSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "push listings changed since the last sync into the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(cmd, false)
		},
	}

	indexRebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "clear the index and copy every listing again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(cmd, true)
		},
	}

	indexStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "print row counts of the store and the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *app.Core) error {
				if c.Index == nil {
					return errIndexDisabled
				}

				ctx := cmd.Context()

				stored, err := c.Services.Torrents.Count(ctx)
				if err != nil {
					return err
				}

				indexed, err := c.Index.Count(ctx)
				if err != nil {
					return err
				}

				cursor, err := c.Syncer.Cursor(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "type:    %s\n", c.Config.Index.Type)
				fmt.Fprintf(out, "store:   %d\n", stored)
				fmt.Fprintf(out, "index:   %d\n", indexed)
				fmt.Fprintf(out, "cursor:  %s #%d\n", cursor.UpdatedAt.Format(time.RFC3339), cursor.ID)

				return nil
			})
		},
	}
)

func withSyncer(cmd *cobra.Command, rebuild bool) error {
	return withCore(cmd.Context(), func(c *app.Core) error {
		if c.Syncer == nil {
			return errIndexDisabled
		}

		run := c.Syncer.Sync
		if rebuild {
			run = c.Syncer.Rebuild
		}

		n, err := run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "synced %d listings into %s index\n", n, c.Config.Index.Type)

		return nil
	})
}

// registerIndexCommands 注册全文索引相关命令.
func registerIndexCommands() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.AddCommand(indexListCmd, indexSyncCmd, indexRebuildCmd, indexStatusCmd)
}
