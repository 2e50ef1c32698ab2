package interpolate

import "math"

const edgeEpsilon = 1e-9

// Triangulation is an immutable Delaunay triangulation of a sample set.
type Triangulation struct {
	points    []point
	values    []float64
	triangles []triangle
}

// Build triangulates samples. Samples with a NaN coordinate or value are
// dropped. Samples sharing a location are merged, keeping the first. Fewer than three distinct locations, or locations that are all
// collinear, yield an empty triangulation.
func Build(samples []Sample) *Triangulation {
	t := &Triangulation{}

	seen := make(map[point]struct{}, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Lon) || math.IsNaN(s.Lat) || math.IsNaN(s.Value) {
			continue
		}
		p := point{s.Lon, s.Lat}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		t.points = append(t.points, p)
		t.values = append(t.values, s.Value)
	}

	if len(t.points) < 3 || collinear(t.points) {
		return t
	}

	t.triangles = triangulate(t.points)
	return t
}

func collinear(pts []point) bool {
	a := pts[0]
	for i := 1; i < len(pts); i++ {
		b := pts[i]
		if b == a {
			continue
		}
		for _, c := range pts[i+1:] {
			if cross(a, b, c) != 0 {
				return false
			}
		}
		return true
	}
	return true
}

func cross(a, b, c point) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// Len returns the number of triangles.
func (t *Triangulation) Len() int {
	return len(t.triangles)
}

// Interpolate returns the value at (lon, lat) from the barycentric weights of
// the triangle containing it. Points outside the convex hull, or any point of
// an empty triangulation, yield 0.
func (t *Triangulation) Interpolate(lon, lat float64) float64 {
	p := point{lon, lat}

	for _, tr := range t.triangles {
		a, b, c := t.points[tr.a], t.points[tr.b], t.points[tr.c]

		det := (b.y-c.y)*(a.x-c.x) + (c.x-b.x)*(a.y-c.y)
		if det == 0 {
			continue
		}
		l1 := ((b.y-c.y)*(p.x-c.x) + (c.x-b.x)*(p.y-c.y)) / det
		l2 := ((c.y-a.y)*(p.x-c.x) + (a.x-c.x)*(p.y-c.y)) / det
		l3 := 1 - l1 - l2

		if l1 < -edgeEpsilon || l2 < -edgeEpsilon || l3 < -edgeEpsilon {
			continue
		}
		return l1*t.values[tr.a] + l2*t.values[tr.b] + l3*t.values[tr.c]
	}

	return 0
}
