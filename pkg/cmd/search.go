package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yeisme/torrentvault/pkg/app"
	"github.com/yeisme/torrentvault/pkg/internal/handle"
	"github.com/yeisme/torrentvault/pkg/internal/search"
)

var (
	searchAsUser string
	searchRSS    bool

	searchCmd = &cobra.Command{
		Use:   "search [query-string]",
		Short: "run one search through the engine and print the result",
		Example: `  torrentvault search 'q=bebop&c=1_0&s=seeders'
  torrentvault search --rss 'q=bebop&magnets'
  torrentvault search --as mod 'u=alice'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}

			if len(args) == 1 {
				var err error

				params, err = url.ParseQuery(strings.TrimPrefix(args[0], "?"))
				if err != nil {
					return fmt.Errorf("parse query string: %w", err)
				}
			}

			return withCore(cmd.Context(), func(c *app.Core) error {
				ctx := cmd.Context()

				var session *search.User

				if searchAsUser != "" {
					u, err := c.Services.Users.ByUsername(ctx, searchAsUser)
					if err != nil {
						return err
					}

					if u == nil {
						return fmt.Errorf("user %q: %w", searchAsUser, search.ErrNotFound)
					}

					session = u
				}

				out, err := c.Engine.Search(ctx, search.Request{
					Params:  params,
					Session: session,
					Feed:    searchRSS || search.IsFeedRequest(params),
				})
				if err != nil {
					return err
				}

				if out.Feed != nil {
					body, err := handle.RenderFeed(out.Feed)
					if err != nil {
						return err
					}

					_, err = cmd.OutOrStdout().Write(append(body, '\n'))

					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				if out.Redirect != nil {
					return enc.Encode(out.Redirect)
				}

				return enc.Encode(out.View)
			})
		},
	}
)

// registerSearchCommands 注册检索命令.
func registerSearchCommands() {
	searchCmd.Flags().StringVar(&searchAsUser, "as", "", "search as this user (moderators see everything)")
	searchCmd.Flags().BoolVar(&searchRSS, "rss", false, "render as rss feed")

	rootCmd.AddCommand(searchCmd)
}
