package commands

import (
	"context"
	"sedar-crawler/internal/components/chrono"
	"sedar-crawler/internal/components/telemetry"
	"sync"

	"github.com/spf13/cobra"
)

const report_schedule_crawl = "schedule.crawl"

var (
	scheduleSpec *string
	scheduleNow  *bool
)

func init() {
	scheduleSpec = scheduleCmd.Flags().String("cron", "", "Overrides the cron schedule from the config.")
	scheduleNow = scheduleCmd.Flags().Bool("now", false, "Also crawl once right away.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron <spec>] [--now]",
	Short: "Keeps running and crawls on a cron schedule.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tel := telemetry.NewScopedAPI("schedule", globals.tel)

		spec := globals.cfg.Schedule
		if *scheduleSpec != "" {
			spec = *scheduleSpec
		}

		c, sqldb, err := newCrawler(globals.cfg)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		telemetry.InstrumentPerfStats(ctx, tel)

		s := newScheduler(c.Run, chrono.NewStandardCron(tel), tel)
		return s.serve(ctx, spec, *scheduleNow)
	},
}

// scheduler runs crawls on cron ticks and, optionally, once on start. At most
// one crawl runs at a time.
type scheduler struct {
	tel   telemetry.API
	cron  chrono.CronAPI
	crawl func(ctx context.Context) error

	running sync.Mutex
	wg      sync.WaitGroup
}

func newScheduler(crawl func(ctx context.Context) error, cron chrono.CronAPI, tel telemetry.API) *scheduler {
	return &scheduler{
		tel:   tel,
		cron:  cron,
		crawl: crawl,
	}
}

// serve blocks until ctx is done and every crawl it started has returned.
func (s *scheduler) serve(ctx context.Context, spec string, now bool) error {
	defer s.wg.Wait()
	defer s.cron.Stop()

	err := s.cron.Cron(spec, func() { s.run(ctx) })
	if err != nil {
		return err
	}
	s.tel.ReportDebug("scheduled crawl", spec)

	// the cron chain only keeps ticks from overlapping each other, the start
	// crawl runs outside of it
	if now {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx)
		}()
	}

	<-ctx.Done()
	return nil
}

func (s *scheduler) run(ctx context.Context) {
	if !s.running.TryLock() {
		s.tel.ReportWarning(report_schedule_crawl, "previous crawl still running")
		return
	}
	defer s.running.Unlock()
	if ctx.Err() != nil {
		return
	}

	err := s.crawl(ctx)
	if err != nil && ctx.Err() == nil {
		s.tel.ReportBroken(report_schedule_crawl, err)
	}
}
