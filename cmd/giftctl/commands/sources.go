package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSourcesCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Query marketplace product sources",
	}

	var platform, keyword string
	searchCmd := &cobra.Command{
		Use:     "search",
		Short:   "Search one marketplace by keyword",
		Example: `  giftctl sources search --platform taobao --keyword 香薰`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer app.Close()

			products, err := app.Sources.Search(cmd.Context(), platform, keyword)
			if err != nil {
				return fmt.Errorf("search %s: %w", platform, err)
			}
			return printJSON(cmd.OutOrStdout(), products)
		},
	}
	searchCmd.Flags().StringVarP(&platform, "platform", "p", "", "platform name (taobao, jd)")
	searchCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "search keyword")
	_ = searchCmd.MarkFlagRequired("platform")
	_ = searchCmd.MarkFlagRequired("keyword")

	cmd.AddCommand(searchCmd)
	return cmd
}
