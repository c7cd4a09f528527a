package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/confcast/confcast/archive"
	"github.com/confcast/confcast/conference"
	"github.com/confcast/confcast/fetch"
	"github.com/confcast/confcast/scrape"
)

var (
	scrapeYear  int
	scrapeMonth int
	scrapeLang  string
	scrapeOut   string
	noCache     bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one conference into a JSON archive",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().IntVar(&scrapeYear, "year", 0, "conference year")
	scrapeCmd.Flags().IntVar(&scrapeMonth, "month", 0, "conference month (4 or 10)")
	scrapeCmd.Flags().StringVar(&scrapeLang, "lang", "", "content language code (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "archive output directory (default from config)")
	scrapeCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the page cache")
	scrapeCmd.MarkFlagRequired("year")
	scrapeCmd.MarkFlagRequired("month")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	lang := scrapeLang
	if lang == "" {
		lang = cfg.Language
	}
	outDir := scrapeOut
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	fetcher := fetch.New(fetch.Options{
		CacheDir: cfg.CacheDir,
		UseCache: cfg.UseCache && !noCache,
		MinDelay: cfg.Delay(),
	}, log)

	scraper := scrape.New(fetcher, scrape.Config{
		Language:     lang,
		SessionAudio: cfg.SessionAudio,
		TalkAudio:    cfg.TalkAudio,
		BaseURL:      cfg.BaseURL,
	}, log)

	store, err := archive.NewRunStore(cfg.RunsDB)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	key := (&conference.Conference{Year: scrapeYear, Month: scrapeMonth, Language: lang}).Key()
	run, err := store.RecordStart(key, lang)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	conf, err := scraper.Scrape(cmd.Context(), scrapeYear, scrapeMonth)
	if err != nil {
		if ferr := store.RecordFinish(run.RunID, archive.RunResult{}, true); ferr != nil {
			log.Warn("failed to record run failure", zap.Error(ferr))
		}
		return fmt.Errorf("scrape failed: %w", err)
	}

	path, err := conference.WriteArchive(outDir, conf)
	if err != nil {
		if ferr := store.RecordFinish(run.RunID, archive.RunResult{}, true); ferr != nil {
			log.Warn("failed to record run failure", zap.Error(ferr))
		}
		return fmt.Errorf("write archive: %w", err)
	}

	talks := 0
	for _, sess := range conf.Sessions {
		talks += len(sess.Talks)
	}
	result := archive.RunResult{
		Sessions:     len(conf.Sessions),
		Talks:        talks,
		EnrichErrors: scraper.EnrichErrors(),
		ArchivePath:  path,
	}
	if err := store.RecordFinish(run.RunID, result, false); err != nil {
		log.Warn("failed to record run completion", zap.Error(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scraped %s: %d sessions, %d talks (%d enrichment errors)\n",
		conf.Name, result.Sessions, result.Talks, result.EnrichErrors)
	fmt.Fprintf(cmd.OutOrStdout(), "Archive written to %s\n", path)
	return nil
}
