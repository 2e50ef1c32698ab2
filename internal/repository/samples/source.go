// Package samples provides the water level measurements a water tile is
// interpolated from.
package samples

import (
	"context"

	"github.com/nahlund/backend/tileserver/internal/geometry/interpolate"
	"github.com/nahlund/backend/tileserver/internal/tile"
)

// Source returns every sample located under a tile.
type Source interface {
	FetchSamples(ctx context.Context, id tile.ID) ([]interpolate.Sample, error)
}
