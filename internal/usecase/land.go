package usecase

import (
	"context"
	"fmt"
	"image"
	"math"
	"net/http"

	"github.com/nahlund/backend/tileserver/internal/geometry/glb"
	"github.com/nahlund/backend/tileserver/internal/geometry/mesh"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type LandConfig struct {
	DEMURL   string
	PhotoURL string
	GridSize int
}

// LandGenerator meshes a DEM tile into a colored height field, taking each
// cell's color from the aerial photo of the same tile.
type LandGenerator struct {
	cfg     LandConfig
	fetcher *imageFetcher
	logger  logger.Logger
}

func NewLandGenerator(cfg LandConfig, client *http.Client, l logger.Logger) *LandGenerator {
	if cfg.GridSize <= 0 {
		cfg.GridSize = 32
	}
	return &LandGenerator{
		cfg:     cfg,
		fetcher: &imageFetcher{client: client, logger: l},
		logger:  l,
	}
}

func (g *LandGenerator) Generate(ctx context.Context, id tile.ID) ([]byte, error) {
	var dem, photo image.Image

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		dem, err = g.fetcher.fetch(egCtx, expandURL(g.cfg.DEMURL, id))
		return err
	})
	eg.Go(func() error {
		var err error
		photo, err = g.fetcher.fetch(egCtx, expandURL(g.cfg.PhotoURL, id))
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	m, err := HeightField(dem, photo, g.cfg.GridSize, float32(id.Resolution()))
	if err != nil {
		return nil, fmt.Errorf("failed to mesh land tile: %w", err)
	}

	g.logger.Debug("generating land tile", "tile", id.String(), "points", len(m.Points), "materials", len(m.Faces))

	return glb.Encode(m)
}

// HeightField builds an n x n cell grid over a square of the given side in
// the water surface frame. Cells touching a missing DEM value are left out.
func HeightField(dem, photo image.Image, n int, side float32) (*mesh.VMesh, error) {
	heights := sampleDEM(dem, n)
	step := side / float32(n)
	stride := n + 1

	points := make([]mesh.Point3D, 0, len(heights))
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			h := heights[j*stride+i]
			if math.IsNaN(h) {
				h = 0
			}
			points = append(points, mesh.Point3D{float32(i) * step, float32(j) * step, float32(h)})
		}
	}

	pb := photo.Bounds()
	faces := make(map[mesh.Color][]uint32)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			lt := j*stride + i
			rt, lb := lt+1, lt+stride
			rb := lb + 1
			if hasNaN(heights, lt, rt, rb, lb) {
				continue
			}

			px := pb.Min.X + (2*i+1)*pb.Dx()/(2*n)
			py := pb.Min.Y + (2*j+1)*pb.Dy()/(2*n)
			c := mesh.Color(quantize(photo.At(px, py)))

			faces[c] = append(faces[c],
				uint32(lt), uint32(rt), uint32(rb),
				uint32(rb), uint32(lb), uint32(lt),
			)
		}
	}

	return mesh.New(points, faces, mesh.Point3D{})
}

func hasNaN(h []float64, idx ...int) bool {
	for _, i := range idx {
		if math.IsNaN(h[i]) {
			return true
		}
	}
	return false
}
