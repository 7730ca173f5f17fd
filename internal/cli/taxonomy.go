package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy <category>",
	Short: "List taxonomy codes for a category",
	Long: `Fetches the code dictionary for one of: news_subjects, regions,
industries, companies, executives. The executives dataset is only available
as a raw download (--download).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		category, err := parseCategory(args[0])
		if err != nil {
			return err
		}

		tx, err := taxonomy.New(nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout)
		defer cancel()

		if dir, _ := cmd.Flags().GetString("download"); dir != "" {
			format, _ := cmd.Flags().GetString("format")
			path, err := tx.Download(ctx, category, dir, format)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		}

		codes, err := tx.Codes(ctx, category)
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return PrintJSON(codes)
		}

		rows := make([][]string, 0, len(codes))
		for _, c := range codes {
			rows = append(rows, []string{c.Code, c.Descriptor, c.DirectParent})
		}
		PrintTable(fmt.Sprintf("Taxonomy: %s", args[0]), []string{"CODE", "DESCRIPTOR", "PARENT"}, rows)
		return nil
	},
}

func parseCategory(name string) (taxonomy.Category, error) {
	switch strings.ToLower(name) {
	case "news_subjects", "subjects":
		return taxonomy.NewsSubjects, nil
	case "regions":
		return taxonomy.Regions, nil
	case "industries":
		return taxonomy.Industries, nil
	case "companies":
		return taxonomy.Companies, nil
	case "executives":
		return taxonomy.Executives, nil
	}
	return "", fmt.Errorf("unknown taxonomy category %q: want news_subjects, regions, industries, companies or executives", name)
}

func init() {
	taxonomyCmd.Flags().String("download", "", "download the raw category file into this directory")
	taxonomyCmd.Flags().String("format", taxonomy.FormatCSV, "raw download format: csv or avro")
}
