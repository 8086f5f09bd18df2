package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Walks every result page, downloading filings and the profiles of their companies.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sqldb, err := newCrawler(globals.cfg)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		t1 := time.Now()
		err = c.Run(cmd.Context())
		if err != nil {
			return err
		}
		slog.Info("crawl finished", "seconds", time.Since(t1).Seconds())
		return nil
	},
}
