package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/torrentvault/pkg/app"
	"github.com/yeisme/torrentvault/pkg/cache"
	"github.com/yeisme/torrentvault/pkg/configs"
	kv "github.com/yeisme/torrentvault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	kvPurgeFeedsCmd = &cobra.Command{
		Use:   "purge-feeds",
		Short: "drop every cached rss response from the configured kv store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			client, err := kv.NewKVClient(cmd.Context(), configs.GetConfig().KV)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := cache.NewCache(client, app.FeedCacheNamespace).Clear(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "feed cache cleared (%s)\n", client.Type)

			return nil
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd, kvPurgeFeedsCmd)
}
