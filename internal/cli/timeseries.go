package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/snapshot"
)

var timeSeriesCmd = &cobra.Command{
	Use:   "timeseries [where]",
	Short: "Compute document volumes over time for a query",
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
		query, err := snapshot.NewTimeSeriesQuery(where)
		if err != nil {
			return err
		}
		query.Frequency, _ = cmd.Flags().GetString("frequency")
		query.GroupBySourceCode, _ = cmd.Flags().GetBool("group-by-source")
		query.Top, _ = cmd.Flags().GetInt("top")

		ts, err := snapshot.NewTimeSeries(nil, query)
		if err != nil {
			return err
		}
		ts.PollInterval = settings.PollInterval

		if err := ts.Process(cmd.Context()); err != nil {
			return err
		}
		if ts.Job.State != snapshot.StateDone {
			return fmt.Errorf("analytics job %s finished in state %s", ts.Job.ID, ts.Job.State)
		}

		if jsonOutput(cmd) {
			return PrintJSON(ts.Rows)
		}

		rows := make([][]string, 0, len(ts.Rows))
		for _, row := range ts.Rows {
			bucket := fmt.Sprintf("%v", row[query.DateField])
			count := fmt.Sprintf("%v", row["count"])
			if query.GroupBySourceCode {
				rows = append(rows, []string{bucket, fmt.Sprintf("%v", row["source_code"]), count})
			} else {
				rows = append(rows, []string{bucket, count})
			}
		}

		headers := []string{"BUCKET", "DOCUMENTS"}
		if query.GroupBySourceCode {
			headers = []string{"BUCKET", "SOURCE", "DOCUMENTS"}
		}
		PrintTable("Document volume", headers, rows)
		return nil
	},
}

func init() {
	timeSeriesCmd.Flags().String("frequency", snapshot.FrequencyMonth, "bucket size: day, month or year")
	timeSeriesCmd.Flags().Bool("group-by-source", false, "split buckets by source code")
	timeSeriesCmd.Flags().Int("top", 0, "keep only the top N sources when grouping")
}
