// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/techcuan/cuanbot/internal/analytics"
	"github.com/techcuan/cuanbot/internal/api"
	"github.com/techcuan/cuanbot/internal/assets"
	"github.com/techcuan/cuanbot/internal/cache"
	"github.com/techcuan/cuanbot/internal/config"
	"github.com/techcuan/cuanbot/internal/daemon"
	"github.com/techcuan/cuanbot/internal/elevenlabs"
	"github.com/techcuan/cuanbot/internal/health"
	"github.com/techcuan/cuanbot/internal/jobs"
	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/media"
	"github.com/techcuan/cuanbot/internal/openai"
	"github.com/techcuan/cuanbot/internal/ratelimit"
	"github.com/techcuan/cuanbot/internal/resilience"
	"github.com/techcuan/cuanbot/internal/scheduler"
	"github.com/techcuan/cuanbot/internal/telegram"
	"github.com/techcuan/cuanbot/internal/tiktok"
	"github.com/techcuan/cuanbot/internal/trends"
	"github.com/techcuan/cuanbot/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	once := flag.Bool("once", false, "run a single production cycle and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cuanbot %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	log.Configure(log.Config{Level: "info", Service: "cuanbot", Version: version.Version})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath, version.Version).Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration load failed")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: version.Version})

	if err := assets.EnsureDirs(cfg.AssetsDir, cfg.DataDir); err != nil {
		logger.Fatal().Err(err).Msg("directory setup failed")
	}

	retry := resilience.RetryConfig{Attempts: cfg.RetryAttempts, Wait: cfg.RetryWait}
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	// Cache backend for trend lookups: Redis when configured, memory otherwise.
	var trendCache cache.Cache
	if cfg.RedisAddr != "" {
		trendCache, err = cache.NewRedisCache(cache.RedisConfig{Addr: cfg.RedisAddr}, log.WithComponent("cache"))
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
			trendCache = cache.NewMemoryCache(5 * time.Minute)
		}
	} else {
		trendCache = cache.NewMemoryCache(5 * time.Minute)
	}

	trendSvc := trends.New(trends.Config{
		GoogleBase:   cfg.TrendsBase,
		TokBoardBase: cfg.TokboardBase,
		Geo:          cfg.TrendsGeo,
		Timeout:      cfg.HTTPTimeout,
		Retry:        retry,
		CacheTTL:     cfg.TrendsTTL,
		Cache:        trendCache,
		Limiter:      limiter,
	})

	captioner := openai.New(openai.Config{
		Base:    cfg.OpenAIBase,
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.HTTPTimeout,
		Retry:   retry,
		Limiter: limiter,
		Breaker: resilience.NewCircuitBreaker("openai", 5, time.Minute),
	})

	speech := elevenlabs.New(elevenlabs.Config{
		Base:    cfg.ElevenLabsBase,
		APIKey:  cfg.ElevenLabsKey,
		Timeout: cfg.HTTPTimeout,
		Retry:   retry,
		Limiter: limiter,
		Breaker: resilience.NewCircuitBreaker("elevenlabs", 5, time.Minute),
	})

	notifier := telegram.New(cfg.TelegramBase, cfg.TelegramToken, cfg.TelegramChatID, cfg.HTTPTimeout, retry)

	store, err := analytics.Open(filepath.Join(cfg.DataDir, "analytics.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("analytics store open failed")
	}

	library := assets.NewLibrary(cfg.AssetsDir, nil)
	if err := library.Reindex(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial asset index failed")
	}
	if err := library.Watch(ctx); err != nil {
		logger.Warn().Err(err).Msg("asset watcher unavailable, continuing without live reindex")
	}

	producer := jobs.NewProducer(jobs.Deps{
		Topics:     trendSvc,
		Captions:   captioner,
		Speech:     speech,
		Runner:     media.NewExecutor(cfg.FFmpegPath),
		Prober:     media.NewProber(cfg.FFprobePath),
		Assets:     library,
		Engagement: tiktok.NewScraper(cfg.HTTPTimeout, retry),
		Analytics:  store,
		Notify:     notifier,
		DataDir:    cfg.DataDir,
		PublicURL:  cfg.PublicURL,
		Watermark:  cfg.Watermark,
		VideoQuota: assets.VideoQuota(cfg.DataDir, cfg.VideoQuotaMB, cfg.KeepVideos),
		LogQuota:   assets.LogQuota(cfg.DataDir, cfg.LogQuotaMB, cfg.KeepLogs),
	})

	if *once {
		logger.Info().Msg("running single production cycle")
		status, err := producer.Produce(ctx)
		_ = store.Close()
		if err != nil {
			logger.Error().Err(err).Msg("cycle failed")
			os.Exit(1)
		}
		logger.Info().Str(log.FieldVideoURL, status.VideoURL).Msg("cycle finished")
		return
	}

	hours, err := config.ParseActiveHours(cfg.ActiveHours)
	if err != nil {
		logger.Fatal().Err(err).Msg("active hours invalid")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("timezone invalid")
	}

	sched := scheduler.New(hours, cfg.SchedulesPerDay, loc, func(runCtx context.Context) error {
		_, err := producer.Produce(runCtx)
		return err
	}, notifier, nil, nil)
	sched.Start(ctx)

	healthMgr := health.NewManager(version.Version)
	healthMgr.RegisterChecker(&health.DataDirChecker{Dir: cfg.DataDir})
	healthMgr.RegisterChecker(&health.FFmpegChecker{Path: cfg.FFmpegPath})
	healthMgr.RegisterChecker(&health.TelegramChecker{Token: cfg.TelegramToken, ChatID: cfg.TelegramChatID})

	server := api.NewServer(api.Config{
		VideosDir: filepath.Join(cfg.DataDir, "videos"),
		APIToken:  cfg.APIToken,
	}, producer, trendSvc, store, sched, healthMgr)

	mgr := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), server.Router())
	mgr.RegisterShutdownHook("analytics", func(context.Context) error {
		return store.Close()
	})

	if notifier.Enabled() {
		if err := notifier.Send(ctx, "🤖 Techcuan AI Pro aktif 24/7!"); err != nil {
			logger.Warn().Err(err).Msg("startup notification failed")
		}
	}

	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str("data", cfg.DataDir).
		Int("schedules_per_day", cfg.SchedulesPerDay).
		Msg("cuanbot starting")

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
}
