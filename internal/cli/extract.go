package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/factiva-io/factiva-analytics-go/snapshot"
)

var extractCmd = &cobra.Command{
	Use:   "extract [where]",
	Short: "Run a snapshot extraction and download its files",
	Long: `Submits an extraction job for the given where clause (or FACTIVA_WHERE),
waits for completion and downloads the result files. Use --resume to attach
to an existing job instead of submitting a new one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := setup(cmd)
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("output")
		if dir == "" {
			dir = settings.DownloadDir
		}

		if resumeID, _ := cmd.Flags().GetString("resume"); resumeID != "" {
			extraction, err := snapshot.ResumeExtraction(cmd.Context(), nil, resumeID)
			if err != nil {
				return err
			}
			extraction.PollInterval = settings.PollInterval
			if extraction.Job.State != snapshot.StateDone {
				return fmt.Errorf("extraction job %s is in state %s, not ready for download", extraction.ShortID, extraction.Job.State)
			}
			paths, err := extraction.DownloadFiles(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return reportDownload(cmd, extraction, paths)
		}

		where := ""
		if len(args) > 0 {
			where = args[0]
		}
		query, err := snapshot.NewExtractionQuery(where)
		if err != nil {
			return err
		}
		query.Format, _ = cmd.Flags().GetString("format")
		query.Limit, _ = cmd.Flags().GetInt("limit")

		extraction, err := snapshot.NewExtraction(nil, query)
		if err != nil {
			return err
		}
		extraction.PollInterval = settings.PollInterval

		if err := extraction.Process(cmd.Context(), dir); err != nil {
			return err
		}
		return reportDownload(cmd, extraction, nil)
	},
}

func reportDownload(cmd *cobra.Command, extraction *snapshot.Extraction, paths []string) error {
	if jsonOutput(cmd) {
		return PrintJSON(map[string]any{
			"short_id": extraction.ShortID,
			"state":    extraction.Job.State,
			"files":    extraction.Files,
			"paths":    paths,
		})
	}
	fmt.Printf("Extraction %s done: %d files downloaded\n", extraction.ShortID, len(extraction.Files))
	return nil
}

func init() {
	extractCmd.Flags().String("format", snapshot.FormatAvro, "output file format: avro, csv or json")
	extractCmd.Flags().Int("limit", 0, "cap the number of extracted documents (0 = no cap)")
	extractCmd.Flags().String("output", "", "download directory (default from config)")
	extractCmd.Flags().String("resume", "", "attach to an existing job by short or full id")
}
