package main

import (
	"context"
	"net/http"
	"time"

	"github.com/berkinory/Nobetcim/lib/configutil"
	"github.com/berkinory/Nobetcim/lib/scrapers/eczane"
	"github.com/berkinory/Nobetcim/lib/serviceutil"
	"github.com/berkinory/Nobetcim/lib/telemetry"
	"github.com/berkinory/Nobetcim/services/roster"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Port  int `json:"port"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Source struct {
		BaseUrl string `json:"base_url"`
	} `json:"source"`
	Sweep struct {
		Days          int `json:"days"`
		IntervalHours int `json:"interval_hours"`
	} `json:"sweep"`
}

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(false)
	tel, err := telemetry.SetupFromEnv(ctx, "nobetcid")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to load configuration", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		serviceutil.Fatal("failed to reach redis", err)
	}

	store := roster.NewStore(roster.NewRedisKV(rdb))
	scraper := eczane.NewScraper(eczane.ScraperOptions{
		BaseUrl: config.Source.BaseUrl,
	})
	service := roster.NewService(store, scraper, roster.ServiceOptions{
		Days:     config.Sweep.Days,
		Interval: time.Duration(config.Sweep.IntervalHours) * time.Hour,
	})

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	go serviceutil.StartHttpServer(config.Port, mux)

	go service.Daemon(ctx)

	<-ctx.Done()
}
