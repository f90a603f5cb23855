package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"deal-transfer/transfer"
	"deal-transfer/transfer/application"
	"deal-transfer/transfer/domain"
	"deal-transfer/transfer/infra"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	sink, err := infra.OpenLogSink(cfg.logFile, infra.WithSinkLocation(cfg.location))
	if err != nil {
		log.Fatalf("log sink error: %v", err)
	}
	defer func() { _ = sink.Close() }()

	var rdb *redis.Client
	if cfg.usesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	var counter domain.CounterStore
	switch cfg.counterStore {
	case "redis":
		counter = infra.NewRedisCounterStore(rdb, infra.WithCounterPrefix(cfg.redisPrefix))
	case "memory":
		counter = infra.NewMemoryCounterStore(nil)
	default:
		counter = infra.NewFileCounterStore(cfg.counterFile)
	}

	memStats := infra.NewMemoryStatsStore()
	stats := infra.StatsFanout{memStats}
	if cfg.statsRedis {
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.redisPrefix+":stats"),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsLocation(cfg.location),
		))
	}

	crm := infra.NewBitrixClient(cfg.webhookURL, sink,
		infra.WithRequestRate(cfg.crmRPS),
		infra.WithRequestTimeout(cfg.crmTimeout),
	)

	workflow := application.Workflow{
		Settings: application.Settings{
			SourceStageID: cfg.sourceStageID,
			TargetStageID: cfg.targetStageID,
			BatchSize:     cfg.batchSize,
			DailyLimit:    cfg.dailyLimit,
			StartHour:     cfg.startHour,
			Location:      cfg.location,
		},
		CRM:     crm,
		Counter: counter,
		Log:     sink,
	}

	sched := &transfer.Scheduler{
		Pass:        workflow,
		Guard: application.GuardService{
			Pool:           infra.NewChanPool(1),
			AcquireTimeout: cfg.acquireWait,
		},
		Stats:       stats,
		Log:         sink,
		Interval:    cfg.pollInterval,
		Location:    cfg.location,
		PassTimeout: cfg.passTimeout,
		RunOnStart:  cfg.runOnStart,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.statusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.statusAddr,
			Handler:           transfer.StatusHandler(sched, memStats),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       90 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		go func() {
			log.Printf("status listening on %s", cfg.statusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server error: %v", err)
			}
		}()
	}

	log.Printf("deal transfer: %s -> %s batch=%d limit=%d startHour=%d interval=%s tz=%s",
		cfg.sourceStageID, cfg.targetStageID, cfg.batchSize, cfg.dailyLimit, cfg.startHour, cfg.pollInterval, cfg.location)
	log.Printf("storage: counter=%s file=%q log=%q redisStats=%v", cfg.counterStore, cfg.counterFile, cfg.logFile, cfg.statsRedis)
	log.Printf("crm: rps=%.3f timeout=%s", cfg.crmRPS, cfg.crmTimeout)
	log.Printf("guard: acquireTimeout=%s passTimeout=%s", cfg.acquireWait, cfg.passTimeout)

	if err := sched.Run(ctx); err != nil {
		log.Fatalf("scheduler error: %v", err)
	}
	log.Printf("deal transfer stopped")
}
