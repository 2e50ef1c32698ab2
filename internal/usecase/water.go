package usecase

import (
	"context"
	"fmt"

	"github.com/nahlund/backend/tileserver/internal/geometry/glb"
	"github.com/nahlund/backend/tileserver/internal/geometry/interpolate"
	"github.com/nahlund/backend/tileserver/internal/geometry/mesh"
	"github.com/nahlund/backend/tileserver/internal/repository/samples"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
)

var WaterColor = mesh.Color{0, 0, 255}

// WaterGenerator renders the water surface of a tile as a single quad whose
// corner heights are interpolated from nearby water level samples.
type WaterGenerator struct {
	source samples.Source
	// contextLevels widens the sample query to an ancestor tile so corners
	// near the tile edge interpolate across it.
	contextLevels uint8
	logger        logger.Logger
}

func NewWaterGenerator(source samples.Source, contextLevels uint8, l logger.Logger) *WaterGenerator {
	return &WaterGenerator{
		source:        source,
		contextLevels: contextLevels,
		logger:        l,
	}
}

func (g *WaterGenerator) queryTile(id tile.ID) tile.ID {
	if g.contextLevels == 0 {
		return id
	}
	if g.contextLevels >= id.Z {
		return id.Ancestor(0)
	}
	return id.Ancestor(id.Z - g.contextLevels)
}

func (g *WaterGenerator) Generate(ctx context.Context, id tile.ID) ([]byte, error) {
	smp, err := g.source.FetchSamples(ctx, g.queryTile(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch water level samples: %w", err)
	}

	g.logger.Debug("generating water tile", "tile", id.String(), "samples", len(smp))

	return glb.Encode(WaterSurface(id, interpolate.Build(smp)))
}

// WaterSurface builds the quad for id in a local frame with the tile's
// top-left corner at the origin and a side of id.Resolution() meters.
func WaterSurface(id tile.ID, tr *interpolate.Triangulation) *mesh.VMesh {
	res := float32(id.Resolution())
	corners := id.Corners()

	var h [4]float32
	for i, c := range corners {
		h[i] = float32(tr.Interpolate(c.Lon, c.Lat))
	}

	return mesh.NewWaterSurface([4]mesh.Point3D{
		{0, 0, h[0]},
		{res, 0, h[1]},
		{res, res, h[2]},
		{0, res, h[3]},
	}, WaterColor)
}
