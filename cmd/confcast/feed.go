package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/confcast/confcast/conference"
	"github.com/confcast/confcast/feed"
)

var (
	feedArchive  string
	feedOut      string
	feedCheck    bool
	feedSessions bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Render an archived conference as a podcast RSS feed",
	RunE:  runFeed,
}

func init() {
	feedCmd.Flags().StringVar(&feedArchive, "archive", "", "path to a conference archive JSON file")
	feedCmd.Flags().StringVar(&feedOut, "out", "", "feed output file (default stdout)")
	feedCmd.Flags().BoolVar(&feedCheck, "check", false, "verify the rendered feed parses before writing")
	feedCmd.Flags().BoolVar(&feedSessions, "session-episodes", false, "include full-session episodes")
	feedCmd.MarkFlagRequired("archive")

	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	conf, err := conference.ReadArchive(feedArchive)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	data, err := feed.Render(conf, feed.Options{SessionEpisodes: feedSessions})
	if err != nil {
		return fmt.Errorf("render feed: %w", err)
	}

	if feedCheck {
		parsed, err := feed.Verify(data)
		if err != nil {
			return fmt.Errorf("feed check failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Feed check passed: %d episodes\n", len(parsed.Items))
	}

	if feedOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(feedOut, data, 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Feed written to %s\n", feedOut)
	return nil
}
