package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/stream"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Manage streaming instances",
}

var streamCreateCmd = &cobra.Command{
	Use:   "create [where]",
	Short: "Create a streaming instance and wait until it runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		where := ""
		if len(args) > 0 {
			where = args[0]
		}
		instance, err := stream.NewInstance(nil, where)
		if err != nil {
			return err
		}
		instance.PollInterval = settings.PollInterval

		if err := instance.Create(cmd.Context()); err != nil {
			return err
		}
		return reportInstance(cmd, instance)
	},
}

var streamStatusCmd = &cobra.Command{
	Use:   "status <stream-id>",
	Short: "Show a stream's status and subscriptions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout)
		defer cancel()

		instance, err := stream.ResumeInstance(ctx, nil, args[0])
		if err != nil {
			return err
		}
		return reportInstance(cmd, instance)
	},
}

var streamDeleteCmd = &cobra.Command{
	Use:   "delete <stream-id>",
	Short: "Cancel a streaming instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Timeout)
		defer cancel()

		instance, err := stream.ResumeInstance(ctx, nil, args[0])
		if err != nil {
			return err
		}
		if err := instance.Delete(ctx); err != nil {
			return err
		}
		fmt.Printf("Stream %s deleted\n", instance.ShortID)
		return nil
	},
}

var streamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the account's streaming instances",
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

		runningOnly, _ := cmd.Flags().GetBool("running")
		streams, err := account.Streams(ctx, runningOnly)
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return PrintJSON(streams)
		}

		rows := make([][]string, 0, len(streams))
		for _, s := range streams {
			rows = append(rows, []string{s.ShortID, s.JobStatus, strings.Join(s.Subscriptions, "\n")})
		}
		PrintTable("Streams", []string{"SHORT ID", "STATUS", "SUBSCRIPTIONS"}, rows)
		return nil
	},
}

func reportInstance(cmd *cobra.Command, instance *stream.Instance) error {
	if jsonOutput(cmd) {
		return PrintJSON(map[string]any{
			"id":            instance.ID,
			"short_id":      instance.ShortID,
			"status":        instance.JobStatus,
			"subscriptions": instance.Subscriptions,
		})
	}

	fmt.Printf("Stream %s is %s\n", instance.ShortID, instance.JobStatus)
	for _, sub := range instance.Subscriptions {
		fmt.Printf("  subscription %s\n", sub.ShortID)
	}
	return nil
}

func init() {
	streamListCmd.Flags().Bool("running", false, "only list running streams")

	streamCmd.AddCommand(streamCreateCmd)
	streamCmd.AddCommand(streamStatusCmd)
	streamCmd.AddCommand(streamDeleteCmd)
	streamCmd.AddCommand(streamListCmd)
}
