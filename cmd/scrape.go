package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// newScrapeCmd creates the 'scrape' subcommand: one full cycle, then exit.
// With --html it instead parses a saved centers page offline, which is
// handy for debugging layout changes without touching the live site.
func newScrapeCmd() *cobra.Command {
	var htmlFile string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs exactly one scrape cycle and exits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if htmlFile != "" {
				return runOfflineCenters(cmd, htmlFile)
			}
			return runScrapeCommand(cmd)
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html", "", "parse a saved centers page file instead of scraping")
	return cmd
}

func runScrapeCommand(cmd *cobra.Command) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	p, err := buildPipeline(a)
	if err != nil {
		return err
	}
	defer p.close()

	counters, err := p.scraper.RunCycle(cmd.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("scrape cycle: %w", err)
	}

	cmd.Printf("cycle complete: %d/%d centers scraped, %d incidents saved, %d retries\n",
		counters.CentersScraped,
		counters.CentersFound,
		counters.IncidentsSaved,
		counters.Retries,
	)
	return nil
}

// runOfflineCenters parses dispatch centers out of a saved index page,
// persists them, and prints what was found.
func runOfflineCenters(cmd *cobra.Command, path string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	html, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read centers page: %w", err)
	}
	centers, err := wildweb.ParseCenters(html, time.Now())
	if err != nil {
		return fmt.Errorf("parse centers page: %w", err)
	}
	if len(centers) == 0 {
		return errors.New("no dispatch centers found in file")
	}
	if err := a.store.UpsertCenters(cmd.Context(), centers); err != nil {
		return fmt.Errorf("save centers: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tSTATE\tNAME")
	for _, c := range centers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Code, c.State, c.Name)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	cmd.Printf("%d dispatch centers saved\n", len(centers))
	return nil
}
