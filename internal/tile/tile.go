// Package tile implements the quadtree tile addressing used by every tile
// kind: identity, textual encoding, ancestor arithmetic and the geographic
// footprint of a tile.
package tile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level a tile may be addressed at.
const MaxZoom = 24

// PixelsPerTile is the edge length of a tile in pixels.
const PixelsPerTile = 256

const earthRadius = 6378137.0

var ErrInvalidID = errors.New("invalid tile id")

// ID addresses one tile of the quadtree. It is a value type and is never
// mutated after construction.
type ID struct {
	X uint32
	Y uint32
	Z uint8
}

// NewID validates the zoom level and that x and y lie inside the 2^z grid.
func NewID(z, x, y int) (ID, error) {
	if z < 0 || z > MaxZoom {
		return ID{}, fmt.Errorf("%w: zoom %d out of range [0, %d]", ErrInvalidID, z, MaxZoom)
	}
	n := 1 << uint(z)
	if x < 0 || x >= n || y < 0 || y >= n {
		return ID{}, fmt.Errorf("%w: (%d, %d) outside %dx%d grid at zoom %d", ErrInvalidID, x, y, n, n, z)
	}
	return ID{X: uint32(x), Y: uint32(y), Z: uint8(z)}, nil
}

// String encodes the id as "x_y_z". ParseID is its inverse.
func (id ID) String() string {
	return fmt.Sprintf("%d_%d_%d", id.X, id.Y, id.Z)
}

func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	var vals [3]int
	for i, p := range parts {
		// strconv accepts a leading sign, which would make the encoding ambiguous
		if p == "" || p[0] < '0' || p[0] > '9' {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
		if strconv.Itoa(v) != p {
			return ID{}, fmt.Errorf("%w: %q is not canonical", ErrInvalidID, s)
		}
		vals[i] = v
	}

	return NewID(vals[2], vals[0], vals[1])
}

// Ancestor returns the tile at zoom z that contains id. A z that is not
// coarser than id.Z returns id itself.
func (id ID) Ancestor(z uint8) ID {
	if z >= id.Z {
		return id
	}
	shift := id.Z - z
	return ID{X: id.X >> shift, Y: id.Y >> shift, Z: z}
}

// Path lists the containment chain from the zoom 0 root down to id.
func (id ID) Path() []ID {
	path := make([]ID, 0, int(id.Z)+1)
	for z := uint8(0); z <= id.Z; z++ {
		path = append(path, id.Ancestor(z))
	}
	return path
}

// LonLat is a geographic coordinate in degrees.
type LonLat struct {
	Lon float64
	Lat float64
}

// Corners returns the geographic corners of the tile ordered left-top,
// right-top, right-bottom, left-bottom.
func (id ID) Corners() [4]LonLat {
	b := maptile.New(id.X, id.Y, maptile.Zoom(id.Z)).Bound()
	west, south := b.Min.Lon(), b.Min.Lat()
	east, north := b.Max.Lon(), b.Max.Lat()

	return [4]LonLat{
		{Lon: west, Lat: north},
		{Lon: east, Lat: north},
		{Lon: east, Lat: south},
		{Lon: west, Lat: south},
	}
}

// Resolution is the ground distance in meters covered by one pixel at the
// latitude of the tile's top edge.
func (id ID) Resolution() float64 {
	lat := id.Corners()[0].Lat * math.Pi / 180
	return 2 * math.Pi * earthRadius * math.Cos(lat) / float64(uint64(PixelsPerTile)<<id.Z)
}

// At returns the tile at zoom z containing the given coordinate.
func At(p LonLat, z uint8) ID {
	t := maptile.At(orb.Point{p.Lon, p.Lat}, maptile.Zoom(z))
	return ID{X: t.X, Y: t.Y, Z: uint8(t.Z)}
}
