package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/auction-backend/internal/archive"
	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/config"
	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/events"
	"github.com/DoyleJ11/auction-backend/internal/httpapi"
	"github.com/DoyleJ11/auction-backend/internal/hub"
	"github.com/DoyleJ11/auction-backend/internal/ledger"
	"github.com/DoyleJ11/auction-backend/internal/logger"
	"github.com/DoyleJ11/auction-backend/internal/predict"
	"github.com/DoyleJ11/auction-backend/internal/room"
	"github.com/DoyleJ11/auction-backend/internal/tournament"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	sink, store, err := openSinks(cfg, log)
	if err != nil {
		return err
	}
	dispatcher := events.NewDispatcher(sink, cfg.EventQueueSize, log)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Warn("close event sinks", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, room.Options{
		TickInterval: cfg.TickInterval,
		SettleDelay:  cfg.SettleDelay,
		Events:       dispatcher,
		Logger:       log,
	})
	defer h.Shutdown()

	var predictor predict.Predictor = predict.Disabled{}
	if cfg.PredictURL != "" {
		predictor = predict.NewHTTPPredictor(cfg.PredictURL, cfg.PredictModel)
	}

	deps := httpapi.Deps{
		Hub:         h,
		Catalog:     cat,
		Tournaments: tournament.NewRegistry(nil),
		Predictor:   predictor,
		Defaults: engine.Config{
			Mode:          engine.ModeStandard,
			Budget:        cfg.DefaultBudget,
			BidTimeoutSec: cfg.DefaultBidTimeout,
		},
		Rules:  ledger.DefaultCricketRules(),
		Logger: log,
	}
	// A nil *archive.Store in the interface would not compare equal to nil.
	if store != nil {
		deps.Results = store
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.ServerAddr), zap.Int("players", cat.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// openSinks connects every configured event sink. The archive store is also
// returned so the API can serve results from it.
func openSinks(cfg *config.Config, log *zap.Logger) (events.Sink, *archive.Store, error) {
	var (
		sinks events.Multi
		store *archive.Store
	)

	if cfg.NatsURL != "" {
		s, err := events.NewNATSSink(cfg.NatsURL)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
		log.Info("publishing events to nats", zap.String("url", cfg.NatsURL))
	}
	if cfg.RedisAddr != "" {
		s, err := events.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = sinks.Close()
			return nil, nil, err
		}
		sinks = append(sinks, s)
		log.Info("publishing events to redis", zap.String("addr", cfg.RedisAddr))
	}
	if cfg.DatabaseURL != "" {
		s, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			_ = sinks.Close()
			return nil, nil, err
		}
		store = s
		sinks = append(sinks, s)
		log.Info("archiving lot results")
	}

	if len(sinks) == 0 {
		return events.Nop{}, nil, nil
	}
	return sinks, store, nil
}
