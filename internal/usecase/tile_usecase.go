package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nahlund/backend/tileserver/internal/repository/cache"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/nahlund/backend/tileserver/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nahlund/backend/tileserver/internal/usecase"

var glbMagic = []byte("glTF")

// TileStore is the cache the use case reads through.
type TileStore interface {
	GetOrCompute(ctx context.Context, k cache.Key, gen cache.Generator) ([]byte, error)
	Get(ctx context.Context, k cache.Key) ([]byte, bool)
	Put(ctx context.Context, k cache.Key, data []byte) error
	Evict(kind cache.Kind) (memory, disk int)
	Stats() cache.Stats
}

// Generator renders the tile of one kind.
type Generator interface {
	Generate(ctx context.Context, id tile.ID) ([]byte, error)
}

type TileUseCase struct {
	cache      TileStore
	generators map[cache.Kind]Generator
	tracer     trace.Tracer
	logger     logger.Logger
}

func NewTileUseCase(store TileStore, land, water Generator, l logger.Logger) *TileUseCase {
	return &TileUseCase{
		cache: store,
		generators: map[cache.Kind]Generator{
			cache.LandTile:  land,
			cache.WaterTile: water,
		},
		tracer: otel.Tracer(tracerName),
		logger: l,
	}
}

// GetTile returns the GLB for the tile, generating and caching it on a miss.
// Custom model tiles are never generated.
func (uc *TileUseCase) GetTile(ctx context.Context, kind cache.Kind, id tile.ID) ([]byte, error) {
	key := cache.Key{Kind: kind, Tile: id}
	uc.logger.Debug("tile lookup", "key", key.String())

	gen, ok := uc.generators[kind]
	if !ok || gen == nil {
		data, found := uc.cache.Get(ctx, key)
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrTileNotFound, key)
		}
		return data, nil
	}

	data, err := uc.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return uc.generate(ctx, key, gen)
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			uc.logger.Error("failed to get tile", "key", key.String(), "error", err)
		}
		return nil, err
	}

	return data, nil
}

func (uc *TileUseCase) generate(ctx context.Context, key cache.Key, gen Generator) ([]byte, error) {
	ctx, span := uc.tracer.Start(ctx, "tile.generate", trace.WithAttributes(
		attribute.String("tile.kind", key.Kind.String()),
		attribute.Int("tile.z", int(key.Tile.Z)),
		attribute.Int64("tile.x", int64(key.Tile.X)),
		attribute.Int64("tile.y", int64(key.Tile.Y)),
	))
	defer span.End()

	start := time.Now()
	data, err := gen.Generate(ctx, key.Tile)
	metrics.TileGenerationDuration.WithLabelValues(key.Kind.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TileGenerations.WithLabelValues(key.Kind.String(), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.TileGenerations.WithLabelValues(key.Kind.String(), "ok").Inc()
	span.SetAttributes(attribute.Int("tile.size", len(data)))
	uc.logger.Info("generated tile", "key", key.String(), "size", len(data), "duration", time.Since(start))

	return data, nil
}

// StoreCustomTile replaces the custom model for id.
func (uc *TileUseCase) StoreCustomTile(ctx context.Context, id tile.ID, data []byte) error {
	if !bytes.HasPrefix(data, glbMagic) {
		return ErrInvalidModel
	}

	key := cache.Key{Kind: cache.CustomModelTile, Tile: id}
	uc.logger.Debug("storing custom tile", "key", key.String(), "size", len(data))

	if err := uc.cache.Put(ctx, key, data); err != nil {
		uc.logger.Error("failed to store custom tile", "key", key.String(), "error", err)
		return err
	}
	return nil
}

// Evict drops every cached tile of the kind.
func (uc *TileUseCase) Evict(kind cache.Kind) (memory, disk int) {
	memory, disk = uc.cache.Evict(kind)
	uc.logger.Info("evicted tiles", "kind", kind.String(), "memory", memory, "disk", disk)
	return memory, disk
}

func (uc *TileUseCase) Stats() cache.Stats {
	return uc.cache.Stats()
}
