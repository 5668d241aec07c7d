package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/berkinory/Nobetcim/lib/configutil"
	"github.com/berkinory/Nobetcim/lib/regions"
	"github.com/berkinory/Nobetcim/lib/scrapers/eczane"
	"github.com/berkinory/Nobetcim/lib/serviceutil"
	"github.com/berkinory/Nobetcim/lib/sqliteutil"
	"github.com/berkinory/Nobetcim/lib/timezone"
	"github.com/berkinory/Nobetcim/services/roster"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeRegion *int
	scrapeDate   *string
	scrapeSave   *bool
	scrapeDb     *string
)

func init() {
	scrapeRegion = scrapeCmd.Flags().Int("region", 0, "Plate code of the region to scrape (1-81).")
	scrapeDate = scrapeCmd.Flags().String("date", "", "Duty date as DD/MM/YYYY, defaults to today in UTC+3.")
	scrapeSave = scrapeCmd.Flags().Bool("save", false, "Merge the result into the redis date record.")
	scrapeDb = scrapeCmd.Flags().String("db", "", "Also write the result to a sqlite file at this path.")
	scrapeCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --region <code> [--date DD/MM/YYYY] [--save] [--db <path/to/output.db>]",
	Short: "Runs the fetch pipeline for a single region and prints the roster.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to read config", err)
		}

		date := *scrapeDate
		if date == "" {
			date = roster.FormatDate(timezone.Now())
		}

		slog.Info("scraping region",
			"region", *scrapeRegion,
			"city", regions.Name(*scrapeRegion),
			"date", date)

		scraper := eczane.NewScraper(eczane.ScraperOptions{
			BaseUrl: config.Source.BaseUrl,
		})
		out := scraper.Scrape(ctx, *scrapeRegion, date)
		if !out.Success {
			serviceutil.Fatal("scrape failed", fmt.Errorf("region %d, date %s", *scrapeRegion, date))
		}

		slog.Info("scrape finished", "count", out.Count, "took", out.Took)
		renderRoster(out.Entries)

		if *scrapeDb != "" {
			err := dumpToDb(ctx, *scrapeDb, date, *scrapeRegion, out.Entries)
			if err != nil {
				serviceutil.Fatal("failed to write sqlite dump", err)
			}
			slog.Info("wrote sqlite dump", "path", *scrapeDb)
		}

		if *scrapeSave {
			rdb, err := openRedis(ctx, config)
			if err != nil {
				serviceutil.Fatal("failed to reach redis", err)
			}
			store := roster.NewStore(roster.NewRedisKV(rdb))
			if !store.Merge(ctx, date, *scrapeRegion, out.Entries) {
				serviceutil.Fatal("failed to save to redis", fmt.Errorf("merge rejected for %s", date))
			}
			slog.Info("saved to redis", "key", date, "expires_in", roster.RecordTTL)
		}
	},
}

func renderRoster(entries []eczane.Entry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Name", "District", "Phone", "Address", "Lat", "Long"})
	for _, e := range entries {
		lat, long := "-", "-"
		if e.Lat != nil {
			lat = fmt.Sprintf("%.6f", *e.Lat)
		}
		if e.Lon != nil {
			long = fmt.Sprintf("%.6f", *e.Lon)
		}
		tw.AppendRow(table.Row{e.Name, e.District, e.Phone, e.Address, lat, long})
	}
	tw.Render()
}

const rosterSchema = `
CREATE TABLE IF NOT EXISTS roster (
	date TEXT NOT NULL,
	region INTEGER NOT NULL,
	city TEXT NOT NULL,
	district TEXT NOT NULL,
	name TEXT NOT NULL,
	phone TEXT NOT NULL,
	address TEXT NOT NULL,
	lat REAL,
	long REAL
);
`

func dumpToDb(ctx context.Context, path, date string, region int, entries []eczane.Entry) error {
	db, err := sqliteutil.OpenDB(rosterSchema, path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, e := range entries {
		_, err := db.ExecContext(
			ctx,
			`INSERT INTO roster (date, region, city, district, name, phone, address, lat, long)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			date, region, regions.Name(region),
			e.District, e.Name, e.Phone, e.Address, e.Lat, e.Lon,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
