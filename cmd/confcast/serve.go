package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/confcast/confcast/feed"
)

var (
	serveAddr     string
	serveDir      string
	serveSessions bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve archived conferences as podcast feeds over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "archive directory (default from config)")
	serveCmd.Flags().BoolVar(&serveSessions, "session-episodes", false, "include full-session episodes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := serveDir
	if dir == "" {
		dir = cfg.OutputDir
	}

	server := feed.NewServer(dir, feed.Options{SessionEpisodes: serveSessions}, log)

	log.Info("serving feeds", zap.String("addr", serveAddr), zap.String("dir", dir))
	fmt.Fprintf(cmd.OutOrStdout(), "Serving feeds from %s on %s\n", dir, serveAddr)

	if err := http.ListenAndServe(serveAddr, server.Handler()); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
