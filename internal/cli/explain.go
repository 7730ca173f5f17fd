package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/snapshot"
)

var explainCmd = &cobra.Command{
	Use:   "explain [where]",
	Short: "Estimate the document volume matching a query",
	Long: `Submits an explain job for the given where clause (or FACTIVA_WHERE) and
waits for the volume estimate. Use --samples to also fetch sample article
metadata once the job is done.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		where := ""
		if len(args) > 0 {
			where = args[0]
		}
		query, err := snapshot.NewQuery(where)
		if err != nil {
			return err
		}

		explain, err := snapshot.NewExplain(nil, query)
		if err != nil {
			return err
		}
		explain.PollInterval = settings.PollInterval

		ctx := cmd.Context()
		if err := explain.Process(ctx); err != nil {
			return err
		}
		if explain.Job.State != snapshot.StateDone {
			return fmt.Errorf("explain job %s finished in state %s", explain.Job.ID, explain.Job.State)
		}

		numSamples, _ := cmd.Flags().GetInt("samples")
		var samples []snapshot.SampleArticle
		if numSamples > 0 {
			samples, err = explain.Samples(ctx, numSamples)
			if err != nil {
				return err
			}
		}

		if jsonOutput(cmd) {
			return PrintJSON(map[string]any{
				"job_id":          explain.Job.ID,
				"volume_estimate": explain.VolumeEstimate,
				"samples":         samples,
			})
		}

		fmt.Printf("Job %s done: %d matching documents\n", explain.Job.ID, explain.VolumeEstimate)
		if len(samples) > 0 {
			rows := make([][]string, 0, len(samples))
			for _, s := range samples {
				rows = append(rows, []string{s.AN, s.SourceCode, s.PublicationDatetime, strconv.Itoa(s.WordCount), s.Title})
			}
			PrintTable("Samples", []string{"AN", "SOURCE", "PUBLISHED", "WORDS", "TITLE"}, rows)
		}
		return nil
	},
}

func init() {
	explainCmd.Flags().Int("samples", 0, "number of sample articles to fetch (1-100)")
}
