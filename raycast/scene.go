// Package raycast intersects camera pixel rays with an aligned container
// mesh, turning an arbitrary container shape into a pixel-aligned reference
// surface.
package raycast

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/SoyaOda/foodscan/rimage/transform"
	"github.com/SoyaOda/foodscan/spatialmath"
	"github.com/SoyaOda/foodscan/utils"
)

const leafSize = 4

// Scene is a triangle mesh prepared for ray queries. Construction builds a
// bounding volume hierarchy; the scene is read-only afterwards and safe for
// concurrent casts.
type Scene struct {
	triangles []*spatialmath.Triangle
	nodes     []bvhNode
}

type bvhNode struct {
	min, max r3.Vector
	// leaf iff count > 0; then start indexes into Scene.triangles.
	// otherwise left child is the next node and right is the index here.
	start, count int
	right        int
}

// NewScene builds a Scene from a mesh.
func NewScene(mesh *spatialmath.Mesh) *Scene {
	tris := append([]*spatialmath.Triangle(nil), mesh.Triangles()...)
	s := &Scene{triangles: tris}
	if len(tris) > 0 {
		s.build(0, len(tris))
	}
	return s
}

// build recursively partitions triangles [start,end) and returns the node index.
func (s *Scene) build(start, end int) int {
	min, max := boundsOf(s.triangles[start:end])
	idx := len(s.nodes)
	s.nodes = append(s.nodes, bvhNode{min: min, max: max})

	if end-start <= leafSize {
		s.nodes[idx].start = start
		s.nodes[idx].count = end - start
		return idx
	}

	// median split along the longest extent of the centroids
	size := max.Sub(min)
	axis := 0
	if size.Y > size.X && size.Y >= size.Z {
		axis = 1
	} else if size.Z > size.X && size.Z > size.Y {
		axis = 2
	}
	sub := s.triangles[start:end]
	sort.Slice(sub, func(i, j int) bool {
		return axisValue(sub[i].Centroid(), axis) < axisValue(sub[j].Centroid(), axis)
	})
	mid := start + (end-start)/2

	s.build(start, mid)
	right := s.build(mid, end)
	s.nodes[idx].right = right
	return idx
}

// CastRay intersects a single ray with the scene and returns the parametric
// distance to the nearest hit.
func (s *Scene) CastRay(origin, dir r3.Vector) (float64, bool) {
	if len(s.nodes) == 0 {
		return 0, false
	}
	invDir := r3.Vector{X: safeInv(dir.X), Y: safeInv(dir.Y), Z: safeInv(dir.Z)}
	nearest := math.Inf(1)
	hit := false

	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &s.nodes[idx]
		if !rayBoxIntersect(origin, invDir, node.min, node.max, nearest) {
			continue
		}
		if node.count > 0 {
			for _, tri := range s.triangles[node.start : node.start+node.count] {
				if dist, ok := tri.RayIntersect(origin, dir); ok && dist < nearest {
					nearest = dist
					hit = true
				}
			}
			continue
		}
		stack = append(stack, idx+1, node.right)
	}
	if !hit {
		return 0, false
	}
	return nearest, true
}

// CastToSurface casts one ray per pixel from the camera origin through the
// pinhole model and returns, per pixel, the distance to the mesh surface in
// millimeters and whether the ray hit at all. Missed pixels report depth 0.
func (s *Scene) CastToSurface(pixels []image.Point, params *transform.PinholeCameraIntrinsics) ([]float64, []bool) {
	depths := make([]float64, len(pixels))
	hits := make([]bool, len(pixels))
	utils.GroupWorkParallel(len(pixels), func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		return func(memberNum, workNum int) {
			px := pixels[workNum]
			dir := r3.Vector{
				X: (float64(px.X) - params.Ppx) / params.Fx,
				Y: (float64(px.Y) - params.Ppy) / params.Fy,
				Z: 1,
			}.Normalize()
			depths[workNum], hits[workNum] = s.CastRay(r3.Vector{}, dir)
		}, nil
	})
	return depths, hits
}

// HitRate returns the fraction of rays that hit.
func HitRate(hits []bool) float64 {
	if len(hits) == 0 {
		return 0
	}
	n := 0
	for _, h := range hits {
		if h {
			n++
		}
	}
	return float64(n) / float64(len(hits))
}

func boundsOf(tris []*spatialmath.Triangle) (r3.Vector, r3.Vector) {
	min := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, t := range tris {
		tMin, tMax := t.Bounds()
		min = r3.Vector{X: math.Min(min.X, tMin.X), Y: math.Min(min.Y, tMin.Y), Z: math.Min(min.Z, tMin.Z)}
		max = r3.Vector{X: math.Max(max.X, tMax.X), Y: math.Max(max.Y, tMax.Y), Z: math.Max(max.Z, tMax.Z)}
	}
	return min, max
}

func axisValue(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func safeInv(v float64) float64 {
	if v == 0 {
		return math.Inf(1)
	}
	return 1 / v
}

// rayBoxIntersect is a slab test against an axis-aligned box, rejecting boxes
// entirely beyond the current nearest hit.
func rayBoxIntersect(origin, invDir, min, max r3.Vector, nearest float64) bool {
	t1 := (min.X - origin.X) * invDir.X
	t2 := (max.X - origin.X) * invDir.X
	tMin := math.Min(t1, t2)
	tMax := math.Max(t1, t2)

	t1 = (min.Y - origin.Y) * invDir.Y
	t2 = (max.Y - origin.Y) * invDir.Y
	tMin = math.Max(tMin, math.Min(t1, t2))
	tMax = math.Min(tMax, math.Max(t1, t2))

	t1 = (min.Z - origin.Z) * invDir.Z
	t2 = (max.Z - origin.Z) * invDir.Z
	tMin = math.Max(tMin, math.Min(t1, t2))
	tMax = math.Min(tMax, math.Max(t1, t2))

	return tMax >= tMin && tMax > 0 && tMin < nearest
}
