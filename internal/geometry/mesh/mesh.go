// Package mesh holds the intermediate triangle mesh produced by the tile
// generators and consumed by the GLB encoder.
package mesh

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrIndexOutOfRange = errors.New("face index out of range")

// Point3D is x, y, z in a local metric frame: x east, y north, z up.
type Point3D [3]float32

// Color is an sRGB base color.
type Color [3]uint8

// VMesh is a triangle mesh whose faces are grouped by color. Faces index
// into Points, three indices per triangle.
type VMesh struct {
	Min    Point3D
	Max    Point3D
	Offset Point3D
	Points []Point3D
	Faces  map[Color][]uint32
}

// New builds a mesh and computes its bounding box. Every face index must
// refer to an existing point.
func New(points []Point3D, faces map[Color][]uint32, offset Point3D) (*VMesh, error) {
	n := uint32(len(points))
	for c, idx := range faces {
		for _, i := range idx {
			if i >= n {
				return nil, fmt.Errorf("%w: index %d in color %v, %d points", ErrIndexOutOfRange, i, c, n)
			}
		}
	}

	m := &VMesh{
		Offset: offset,
		Points: points,
		Faces:  faces,
	}
	m.Min, m.Max = bounds(points)

	return m, nil
}

func bounds(points []Point3D) (lo, hi Point3D) {
	if len(points) == 0 {
		return lo, hi
	}

	for i := 0; i < 3; i++ {
		lo[i] = math.MaxFloat32
		hi[i] = -math.MaxFloat32
	}
	for _, p := range points {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	return lo, hi
}

// NewWaterSurface builds a single colored quad from corners given in
// left-top, right-top, right-bottom, left-bottom order.
func NewWaterSurface(corners [4]Point3D, color Color) *VMesh {
	m, _ := New(corners[:], map[Color][]uint32{
		color: {0, 1, 2, 2, 3, 0},
	}, Point3D{})
	return m
}

// Colors returns the face colors in ascending (R, G, B) order.
func (m *VMesh) Colors() []Color {
	colors := make([]Color, 0, len(m.Faces))
	for c := range m.Faces {
		colors = append(colors, c)
	}
	slices.SortFunc(colors, compareColor)
	return colors
}

func compareColor(a, b Color) int {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return 0
}

// Empty reports whether the mesh has nothing to draw.
func (m *VMesh) Empty() bool {
	if len(m.Points) == 0 {
		return true
	}
	for _, idx := range m.Faces {
		if len(idx) > 0 {
			return false
		}
	}
	return true
}
