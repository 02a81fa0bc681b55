package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const floatEpsilon = 1e-9

// Triangle is a face of a mesh, with a precomputed normal.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle creates a Triangle from three points.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the three points associated with the triangle.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the triangle's normal.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm() / 2
}

// Centroid returns the centroid of the triangle.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3.)
}

// Bounds returns the axis-aligned bounding box of the triangle.
func (t *Triangle) Bounds() (r3.Vector, r3.Vector) {
	min := r3.Vector{
		X: math.Min(t.p0.X, math.Min(t.p1.X, t.p2.X)),
		Y: math.Min(t.p0.Y, math.Min(t.p1.Y, t.p2.Y)),
		Z: math.Min(t.p0.Z, math.Min(t.p1.Z, t.p2.Z)),
	}
	max := r3.Vector{
		X: math.Max(t.p0.X, math.Max(t.p1.X, t.p2.X)),
		Y: math.Max(t.p0.Y, math.Max(t.p1.Y, t.p2.Y)),
		Z: math.Max(t.p0.Z, math.Max(t.p1.Z, t.p2.Z)),
	}
	return min, max
}

// RayIntersect returns the parametric distance along the ray at which the ray
// hits the triangle, using the Moller-Trumbore intersection test. The ray
// direction must be non-zero; hits behind the origin are ignored.
func (t *Triangle) RayIntersect(origin, dir r3.Vector) (float64, bool) {
	e1 := t.p1.Sub(t.p0)
	e2 := t.p2.Sub(t.p0)
	h := dir.Cross(e2)
	a := e1.Dot(h)
	if math.Abs(a) < floatEpsilon {
		// ray parallel to the triangle plane
		return 0, false
	}
	f := 1 / a
	s := origin.Sub(t.p0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	dist := f * e2.Dot(q)
	if dist < floatEpsilon {
		return 0, false
	}
	return dist, true
}

// Transform returns a new triangle with all points moved by the given transform.
func (t *Triangle) Transform(rt *RigidTransform) *Triangle {
	return NewTriangle(rt.Apply(t.p0), rt.Apply(t.p1), rt.Apply(t.p2))
}

// PlaneNormal returns the plane normal of the plane defined by three points.
// Degenerate triangles yield the zero vector.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}
