package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	v1 "github.com/nahlund/backend/tileserver/internal/infrastructure/http/v1"
	"github.com/nahlund/backend/tileserver/internal/infrastructure/http/v1/handler"
	"github.com/nahlund/backend/tileserver/internal/notify"
	"github.com/nahlund/backend/tileserver/internal/repository/cache"
	"github.com/nahlund/backend/tileserver/internal/repository/samples"
	"github.com/nahlund/backend/tileserver/internal/usecase"
	"github.com/nahlund/backend/tileserver/pkg/config"
	"github.com/nahlund/backend/tileserver/pkg/http_server"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/nahlund/backend/tileserver/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger.Level)
	defer l.Sync()

	l.Info("starting tile server", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
	}

	tileCache, err := newTileCache(cfg.Cache, l)
	if err != nil {
		l.Fatal("failed to initialize tile cache", "error", err)
	}
	defer func() {
		if err := tileCache.Close(); err != nil {
			l.Error("failed to close tile cache", "error", err)
		}
	}()

	source, closeSource, err := newSampleSource(ctx, cfg, l)
	if err != nil {
		l.Fatal("failed to initialize sample source", "error", err)
	}
	defer closeSource()

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}

	tileUseCase := usecase.NewTileUseCase(
		tileCache,
		usecase.NewLandGenerator(usecase.LandConfig{
			DEMURL:   cfg.Upstream.DEMURL,
			PhotoURL: cfg.Upstream.PhotoURL,
			GridSize: cfg.Upstream.LandGridSize,
		}, httpClient, l),
		usecase.NewWaterGenerator(source, uint8(cfg.Samples.ContextLevels), l),
		l,
	)

	if cfg.Redis.Enabled {
		sub, err := notify.NewSubscriber(notify.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, tileUseCase, l)
		if err != nil {
			l.Fatal("failed to initialize sensor notifications", "error", err)
		}
		defer sub.Close()

		go func() {
			if err := sub.Run(ctx); err != nil {
				l.Error("sensor notifications stopped", "error", err)
			}
		}()
	}

	h := handler.NewHandler(validator.New(), tileUseCase)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)

	httpServer := http_server.NewServer(ctx, cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http server shutdown completed")
	}

	l.Info("application shutdown completed")
}

func newTileCache(cfg config.Cache, l logger.Logger) (*cache.MultiLayerCache, error) {
	memory, err := cache.NewMemoryCache(cfg.MemoryMaxSize)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DiskBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	disk, err := cache.NewDiskCache(cfg.DiskBasePath, cfg.DiskMaxSize,
		cache.WithCompression(cfg.DiskCompression),
		cache.WithDiskLogger(l),
	)
	if err != nil {
		return nil, err
	}

	return cache.NewMultiLayerCache(memory, disk, l), nil
}

func newSampleSource(ctx context.Context, cfg *config.Config, l logger.Logger) (samples.Source, func(), error) {
	switch cfg.Samples.Backend {
	case "neo4j":
		src, err := samples.NewNeo4jSource(ctx, samples.Neo4jConfig{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.DB,
		}, l)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(context.Background()); err != nil {
				l.Error("failed to close neo4j driver", "error", err)
			}
		}, nil
	default:
		src, err := samples.NewSQLiteSource(cfg.Samples.SQLitePath, l)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				l.Error("failed to close sample store", "error", err)
			}
		}, nil
	}
}
