package commands

import (
	"log/slog"
	"time"

	"github.com/berkinory/Nobetcim/lib/configutil"
	"github.com/berkinory/Nobetcim/lib/scrapers/eczane"
	"github.com/berkinory/Nobetcim/lib/serviceutil"
	"github.com/berkinory/Nobetcim/services/roster"

	"github.com/spf13/cobra"
)

var sweepDays *int

func init() {
	sweepDays = sweepCmd.Flags().Int("days", 2, "How many days ahead to collect, starting from today.")
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep [--days <n>]",
	Short: "Runs one full collection pass over every region for the date window.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		rdb, err := openRedis(ctx, config)
		if err != nil {
			serviceutil.Fatal("failed to reach redis", err)
		}

		store := roster.NewStore(roster.NewRedisKV(rdb))
		scraper := eczane.NewScraper(eczane.ScraperOptions{
			BaseUrl: config.Source.BaseUrl,
		})
		service := roster.NewService(store, scraper, roster.ServiceOptions{
			Days: *sweepDays,
		})

		t1 := time.Now()
		err = service.Sweep(ctx)
		if err != nil {
			serviceutil.Fatal("sweep interrupted", err)
		}
		slog.Info("sweep finished", "took", time.Since(t1))
	},
}
