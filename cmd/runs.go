package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kowayz/ytb-story-horro-gen/internal/history"
	"github.com/Kowayz/ytb-story-horro-gen/internal/pipeline"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.ledger.Recent(cmd.Context(), flagRunsLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs yet.")
			return nil
		}
		return writeRuns(os.Stdout, runs)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <run-id>",
	Short: "Upload the video of a finished run to YouTube",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		st, err := a.ledger.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if st.Stage != pipeline.StageDone || st.Video == nil || st.Story == nil {
			return types.InvalidArgf("run %s has no finished video (stage %s)", st.RunID, st.Stage)
		}
		if err := store.NonEmpty(st.Video.Path); err != nil {
			return fmt.Errorf("video of run %s: %w", st.RunID, err)
		}

		url, err := a.uploader.Publish(ctx, st.Video, st.Story)
		if err != nil {
			return err
		}
		if err := a.ledger.SetPublished(ctx, st.RunID, url); err != nil {
			return fmt.Errorf("recording upload: %w", err)
		}
		fmt.Println(url)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "number of runs to show")
}

func writeRuns(w io.Writer, runs []history.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTAGE\tTITLE\tDURATION\tPUBLISHED")
	for _, r := range runs {
		stage := r.Stage
		if r.FailedStage != "" {
			stage += " (" + r.FailedStage + ")"
		}
		dur := "-"
		if r.DurationSec > 0 {
			dur = (time.Duration(r.DurationSec * float64(time.Second))).Round(time.Second).String()
		}
		published := "-"
		if r.PublishURL != "" {
			published = r.PublishURL
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04"), stage, r.Title, dur, published)
	}
	return tw.Flush()
}
