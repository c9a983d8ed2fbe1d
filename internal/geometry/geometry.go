// Package geometry implements the pure math the simulation is built on:
// point stepping, map bounds checks and the segment intersection predicate
// used for trail collisions.
package geometry

// Point is a position on the map.
type Point struct {
	X float64
	Y float64
}

// Vector is a direction. Headings are expected to be unit length while a
// round is running.
type Vector struct {
	X float64
	Y float64
}

// Advance returns the point reached by moving delta units from p along h.
func Advance(p Point, h Vector, delta float64) Point {
	return Point{
		X: p.X + h.X*delta,
		Y: p.Y + h.Y*delta,
	}
}

// OutOfBounds reports whether p lies outside the [0,w] x [0,h] rectangle.
// The borders themselves are in bounds.
func OutOfBounds(p Point, w, h float64) bool {
	return p.X < 0 || p.X > w || p.Y < 0 || p.Y > h
}

// SegmentsIntersect reports whether the open segments AB and CD properly
// intersect, using the parametric form of both lines.
//
// A zero denominator means the segments are parallel (or colinear) and is
// treated as no intersection; colinear overlap is therefore never detected.
// Trails are sampled at discrete tick positions, so a motion segment is
// rarely exactly colinear with another trail. The common exact case is a
// player's own trail behind a straight run, where no intersection is the
// wanted answer.
//
// The strict inequalities matter: endpoint touching does not count. A
// player's motion segment starts exactly on the last node of its own trail,
// and counting that shared endpoint would eliminate every player on the
// tick after its first move.
func SegmentsIntersect(a, b, c, d Point) bool {
	denominator := (a.X-b.X)*(c.Y-d.Y) - (a.Y-b.Y)*(c.X-d.X)
	if denominator == 0 {
		return false
	}

	t := ((a.X-c.X)*(c.Y-d.Y) - (a.Y-c.Y)*(c.X-d.X)) / denominator
	u := -((a.X-b.X)*(a.Y-c.Y) - (a.Y-b.Y)*(a.X-c.X)) / denominator

	return t > 0 && t < 1 && u > 0 && u < 1
}
