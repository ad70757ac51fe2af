package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tracker-bot/bot"
	"tracker-bot/config"
	"tracker-bot/database"
	"tracker-bot/handlers"
	"tracker-bot/health"
	"tracker-bot/metrics"
	"tracker-bot/notifier"
	"tracker-bot/reddit"
	"tracker-bot/tracker"
	"tracker-bot/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml and config/format.json")
	healthcheck := flag.String("healthcheck", "", "query the health service at this address and exit")
	flag.Parse()

	if *healthcheck != "" {
		os.Exit(checkHealth(*healthcheck))
	}

	if err := run(*configDir); err != nil {
		log.Fatalf("Error running bot: %v", err)
	}
}

// checkHealth exits 0 when the tracker service reports SERVING.
func checkHealth(addr string) int {
	c, err := health.NewClient(addr, 5*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	status, err := c.Check(context.Background(), health.ServiceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(status)
	if status != healthpb.HealthCheckResponse_SERVING {
		return 1
	}
	return 0
}

func run(configDir string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	var pending tracker.PendingSet = store
	checks := []health.Check{store.Ping}
	if cfg.Pending.Backend == "redis" {
		rp, err := database.NewRedisPending(ctx, cfg.Pending.RedisURL, cfg.Pending.Key)
		if err != nil {
			return err
		}
		defer rp.Close()
		pending = rp
		checks = append(checks, rp.Ping)
	}

	b, err := bot.NewBot(cfg.Bot.Token, cfg.Bot.GuildID)
	if err != nil {
		return err
	}
	utils.InitLogger(b.Session, cfg.Bot.AdminChannelID)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	source := reddit.New(ctx, cfg.Reddit, config.RequestTimeout(cfg))
	notify := notifier.NewDiscord(b.Session, cfg.Bot.ApprovalChannelID, cfg.Bot.LogChannelID, cfg.Format.TotalCharLimit)

	t, err := tracker.New(source, store, pending, notify, tracker.Options{
		TargetForum:    cfg.Tracker.TargetForum,
		SourceFeed:     cfg.Tracker.SourceFeed,
		BatchSize:      cfg.Tracker.BatchSize,
		MinEpoch:       int64(cfg.Tracker.MinEpoch),
		UpdateDayLimit: cfg.Tracker.UpdateDayLimit,
		ApprovalDelay:  time.Duration(cfg.Tracker.ApprovalDelayMS) * time.Millisecond,
		UpdateDelay:    time.Duration(cfg.Tracker.UpdateDelayMS) * time.Millisecond,
		ExpertiseMax:   cfg.Bot.ExpertiseMax,
		Format:         cfg.Format,
		Observer:       m,
	})
	if err != nil {
		return fmt.Errorf("failed to build tracker: %w", err)
	}
	if err := t.LoadRoster(ctx); err != nil {
		return fmt.Errorf("failed to load tracked authors: %w", err)
	}

	observers := []bot.CycleObserver{m}
	if cfg.GRPC.HealthAddr != "" {
		hs := health.NewServer(checks...)
		if err := hs.ListenAndServe(cfg.GRPC.HealthAddr); err != nil {
			return err
		}
		defer hs.Stop()
		observers = append(observers, hs)
	}
	if cfg.Metrics.ListenAddr != "" {
		ms := metrics.NewServer(cfg.Metrics.ListenAddr, reg)
		ms.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := ms.Stop(stopCtx); err != nil {
				log.Printf("%v", err)
			}
		}()
	}

	b.SetScheduler(bot.NewScheduler(ctx, t, config.PollInterval(cfg), cfg.Tracker.RunAtStartup, observers...))

	h := handlers.New(ctx, b.Session, t, utils.NewAuth(cfg.Users), handlers.Options{
		ExpertiseMax:     cfg.Bot.ExpertiseMax,
		ResyncDelay:      time.Duration(cfg.Tracker.UpdateDelayMS) * time.Millisecond,
		BodyLimit:        cfg.Format.TotalCharLimit,
		RegisterCommands: b.RegisterCommands,
	})

	return b.Run(func(b *bot.Bot) {
		handlers.Register(b, h)
	})
}
