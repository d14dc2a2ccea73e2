package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/config"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/db"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/httpx"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/logging"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/services/execution/internal/actions"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/services/execution/internal/metrics"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/services/execution/internal/replay"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadExecutor(*configPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("load config")
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("open log output")
	}
	log = logging.Component(log, "execution")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := envelope.NewVerifier(cfg.SigningSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("signing secret")
	}

	var guard replay.Guard = replay.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable")
		}
		guard = replay.NewRedisGuard(rdb)
	} else {
		log.Warn().Msg("EXECUTOR_REDIS_ADDR not set; replay guard is process-local")
	}

	var store actions.ReceiptStore = actions.NopStore{}
	if cfg.DatabaseURL != "" {
		var pool *pgxpool.Pool
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database unavailable")
		}
		defer pool.Close()
		store = actions.NewStore(pool)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry := actions.NewRegistry()
	actions.RegisterBuiltins(registry)

	handler := actions.NewHandler(actions.Options{
		Verifier: verifier,
		Guard:    guard,
		Store:    store,
		Registry: registry,
		Metrics:  metrics.New(promReg),
		Log:      log,
		MaxSkew:  cfg.MaxSkew(),
	})

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "protocol_version": envelope.ProtocolVersion, "actions": registry.Names()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	handler.Mount(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Strs("actions", registry.Names()).Msg("executor listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
