// Package interpolate estimates a scalar field, such as a river water level,
// from scattered samples by barycentric interpolation over their Delaunay
// triangulation.
package interpolate

import "math"

// Sample is a measured value at a geographic location.
type Sample struct {
	Lon   float64
	Lat   float64
	Value float64
}

// ghost is the vertex at infinity. A ghost triangle {a, b, ghost} closes the
// hull edge a->b, with the outside of the hull on the left of a->b.
const ghost = -1

type point struct {
	x, y float64
}

type triangle struct {
	a, b, c int
}

type edge struct {
	a, b int
}

// inCircle is positive when d lies inside the circumcircle of the
// counter-clockwise triangle abc.
func inCircle(a, b, c, d point) float64 {
	adx, ady := a.x-d.x, a.y-d.y
	bdx, bdy := b.x-d.x, b.y-d.y
	cdx, cdy := c.x-d.x, c.y-d.y
	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy
	return adx*(bdy*cd-bd*cdy) - ady*(bdx*cd-bd*cdx) + ad*(bdx*cdy-bdy*cdx)
}

// conflicts reports whether p lies in the circumcircle of t. The circumcircle
// of a ghost triangle is the open half-plane outside its hull edge plus the
// open edge itself.
func conflicts(pts []point, t triangle, p point) bool {
	if t.c != ghost {
		return inCircle(pts[t.a], pts[t.b], pts[t.c], p) > 0
	}

	a, b := pts[t.a], pts[t.b]
	if o := cross(a, b, p); o != 0 {
		return o > 0
	}
	return (p.x-a.x)*(p.x-b.x)+(p.y-a.y)*(p.y-b.y) < 0
}

// triangulate runs Bowyer-Watson over pts and returns counter-clockwise
// triangles indexing into pts. The points must be distinct and not all
// collinear.
func triangulate(pts []point) []triangle {
	work := normalize(pts)

	i0, i1, i2, ok := seed(work)
	if !ok {
		return nil
	}
	tris := []triangle{
		{i0, i1, i2},
		{i1, i0, ghost},
		{i2, i1, ghost},
		{i0, i2, ghost},
	}

	for i := range work {
		if i == i0 || i == i1 || i == i2 {
			continue
		}
		tris = insert(work, tris, i)
	}

	out := tris[:0]
	for _, t := range tris {
		if t.c != ghost {
			out = append(out, t)
		}
	}
	return out
}

// insert removes every triangle whose circumcircle holds pts[i] and fans the
// cavity boundary around it.
func insert(pts []point, tris []triangle, i int) []triangle {
	p := pts[i]

	kept := make([]triangle, 0, len(tris)+2)
	boundary := make(map[edge]bool)
	var order []edge

	for _, t := range tris {
		if !conflicts(pts, t, p) {
			kept = append(kept, t)
			continue
		}
		for _, e := range [3]edge{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
			// shared with another cavity triangle
			if rev := (edge{e.b, e.a}); boundary[rev] {
				delete(boundary, rev)
				continue
			}
			boundary[e] = true
			order = append(order, e)
		}
	}

	for _, e := range order {
		if !boundary[e] {
			continue
		}
		switch {
		case e.a == ghost:
			kept = append(kept, triangle{e.b, i, ghost})
		case e.b == ghost:
			kept = append(kept, triangle{i, e.a, ghost})
		default:
			kept = append(kept, triangle{e.a, e.b, i})
		}
	}
	return kept
}

// normalize maps pts into a unit box around the origin so the predicates keep
// their precision for geographic coordinates.
func normalize(pts []point) []point {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	out := make([]point, len(pts))
	for i, p := range pts {
		out[i] = point{(p.x - midX) / span, (p.y - midY) / span}
	}
	return out
}

// seed picks a counter-clockwise starting triangle.
func seed(pts []point) (i0, i1, i2 int, ok bool) {
	if len(pts) < 3 {
		return 0, 0, 0, false
	}
	for k := 2; k < len(pts); k++ {
		o := cross(pts[0], pts[1], pts[k])
		if o > 0 {
			return 0, 1, k, true
		}
		if o < 0 {
			return 1, 0, k, true
		}
	}
	return 0, 0, 0, false
}
