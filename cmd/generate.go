package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kowayz/ytb-story-horro-gen/internal/pipeline"
)

var (
	flagVideoID   string
	flagMaxScenes int
	flagReuse     bool
	flagPublish   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the pipeline once and print the result",
	Long: `Fetch a story, narrate it, illustrate its scenes and assemble the video.

The result is printed as JSON. The exit status is non-zero when any stage fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, runErr := a.pipeline.Run(ctx, pipeline.Request{
			VideoID:   flagVideoID,
			MaxScenes: flagMaxScenes,
			Reuse:     flagReuse,
			Publish:   flagPublish,
		})
		if err := printJSON(res); err != nil {
			return err
		}
		return runErr
	},
}

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Fetch and print a random story",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		return printJSON(a.scraper.Story(cmd.Context()))
	},
}

func init() {
	generateCmd.Flags().StringVar(&flagVideoID, "id", "", "video id (default: the story id)")
	generateCmd.Flags().IntVar(&flagMaxScenes, "max-scenes", 0, "maximum number of scenes (default from config)")
	generateCmd.Flags().BoolVar(&flagReuse, "reuse", false, "return an existing video with the same id instead of rendering")
	generateCmd.Flags().BoolVar(&flagPublish, "publish", false, "upload the finished video to YouTube")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
