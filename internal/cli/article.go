package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/article"
)

var articleCmd = &cobra.Command{
	Use:   "article <an>",
	Short: "Retrieve a single article by its accession number",
	Long: `Fetches one article through the Article Retrieval service using the OAuth
credentials in FACTIVA_CLIENTID, FACTIVA_USERNAME and FACTIVA_PASSWORD.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		retrieval, err := article.NewRetrieval(nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout)
		defer cancel()

		a, err := retrieval.Article(ctx, args[0])
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return PrintJSON(a)
		}
		if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
			fmt.Print(a.HTML())
			return nil
		}
		fmt.Print(a.Text())
		return nil
	},
}

func init() {
	articleCmd.Flags().Bool("html", false, "render the article as an HTML fragment")
}
