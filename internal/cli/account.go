package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/auth"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show account limits, usage and job history",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		account, err := auth.NewAccountInfo(nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout)
		defer cancel()

		if err := account.Stats(ctx); err != nil {
			return err
		}
		includeUpdates, _ := cmd.Flags().GetBool("updates")
		extractions, err := account.Extractions(ctx, includeUpdates)
		if err != nil {
			return err
		}
		streams, err := account.Streams(ctx, false)
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return PrintJSON(map[string]any{
				"account":     account,
				"extractions": extractions,
				"streams":     streams,
			})
		}

		PrintTable(fmt.Sprintf("Account %s (%s)", account.UserKey, account.Name), []string{"LIMIT", "USED", "MAX"}, [][]string{
			{"Extractions", strconv.Itoa(account.TotalExtractions), strconv.Itoa(account.MaxAllowedExtractions)},
			{"Documents", strconv.Itoa(account.TotalExtractedDocuments), strconv.Itoa(account.MaxAllowedExtractedDocuments)},
			{"Concurrent extractions", strconv.Itoa(account.CurrentlyRunningExtractions), strconv.Itoa(account.MaxAllowedConcurrentExtractions)},
			{"Stream instances", strconv.Itoa(account.TotalStreamInstances), ""},
			{"Stream subscriptions", strconv.Itoa(account.TotalStreamSubscriptions), ""},
		})

		rows := make([][]string, 0, len(extractions))
		for _, x := range extractions {
			rows = append(rows, []string{x.ShortID, x.State, x.Format, x.UpdateID})
		}
		PrintTable("Extractions", []string{"SHORT ID", "STATE", "FORMAT", "UPDATE"}, rows)

		rows = rows[:0]
		for _, s := range streams {
			rows = append(rows, []string{s.ShortID, s.JobStatus, strings.Join(s.Subscriptions, "\n")})
		}
		PrintTable("Streams", []string{"SHORT ID", "STATUS", "SUBSCRIPTIONS"}, rows)
		return nil
	},
}

func init() {
	accountCmd.Flags().Bool("updates", false, "include update jobs in the extraction list")
}
