package volume

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/SoyaOda/foodscan/pointcloud"
)

const (
	hullEpsilon = 1e-7
	// hullMaxPoints caps the input so hull construction stays fast; larger
	// clouds are voxelized down first.
	hullMaxPoints = 5000
)

type hullFace struct {
	a, b, c int
	normal  r3.Vector
	offset  float64
	alive   bool
}

// convexHull builds the convex hull of pts incrementally and returns its
// outward-oriented faces. It errors when the points are degenerate (fewer
// than four distinct points, collinear, or coplanar).
func convexHull(pts []r3.Vector) ([]hullFace, error) {
	if len(pts) < 4 {
		return nil, errors.New("need at least four points for a hull")
	}

	i0, i1, i2, i3, err := initialTetrahedron(pts)
	if err != nil {
		return nil, err
	}

	faces := make([]hullFace, 0, 4*len(pts))
	interior := pts[i0].Add(pts[i1]).Add(pts[i2]).Add(pts[i3]).Mul(0.25)
	addFace := func(a, b, c int) {
		f := newHullFace(pts, a, b, c)
		// orient outward w.r.t. the running interior point
		if f.normal.Dot(interior)-f.offset > 0 {
			f = newHullFace(pts, a, c, b)
		}
		faces = append(faces, f)
	}
	addFace(i0, i1, i2)
	addFace(i0, i1, i3)
	addFace(i0, i2, i3)
	addFace(i1, i2, i3)

	used := map[int]bool{i0: true, i1: true, i2: true, i3: true}
	for pi, p := range pts {
		if used[pi] {
			continue
		}
		// find faces the point can see
		visible := []int{}
		for fi := range faces {
			f := &faces[fi]
			if f.alive && f.normal.Dot(p)-f.offset > hullEpsilon {
				visible = append(visible, fi)
			}
		}
		if len(visible) == 0 {
			continue
		}
		// horizon edges appear in exactly one visible face
		type edge struct{ a, b int }
		horizon := map[edge]int{}
		for _, fi := range visible {
			f := &faces[fi]
			f.alive = false
			for _, e := range [][2]int{{f.a, f.b}, {f.b, f.c}, {f.c, f.a}} {
				key := edge{e[0], e[1]}
				if e[1] < e[0] {
					key = edge{e[1], e[0]}
				}
				horizon[key]++
			}
		}
		for _, fi := range visible {
			f := faces[fi]
			for _, e := range [][2]int{{f.a, f.b}, {f.b, f.c}, {f.c, f.a}} {
				key := edge{e[0], e[1]}
				if e[1] < e[0] {
					key = edge{e[1], e[0]}
				}
				if horizon[key] != 1 {
					continue
				}
				// keep the winding of the dead face so the new face
				// points away from the hull
				faces = append(faces, newHullFace(pts, e[0], e[1], pi))
			}
		}
	}

	result := faces[:0]
	for _, f := range faces {
		if f.alive {
			result = append(result, f)
		}
	}
	if len(result) < 4 {
		return nil, errors.New("hull construction collapsed")
	}
	return result, nil
}

func newHullFace(pts []r3.Vector, a, b, c int) hullFace {
	n := pts[b].Sub(pts[a]).Cross(pts[c].Sub(pts[a]))
	if n.Norm() > 0 {
		n = n.Normalize()
	}
	return hullFace{a: a, b: b, c: c, normal: n, offset: n.Dot(pts[a]), alive: true}
}

// initialTetrahedron picks four points with nonzero volume to seed the hull.
func initialTetrahedron(pts []r3.Vector) (int, int, int, int, error) {
	i0, i1 := 0, 0
	best := 0.0
	// farthest pair among axis extremes versus everything
	for i, p := range pts {
		for _, q := range []int{0, len(pts) - 1} {
			if d := p.Sub(pts[q]).Norm2(); d > best {
				best, i0, i1 = d, i, q
			}
		}
	}
	for i, p := range pts {
		if d := p.Sub(pts[i0]).Norm2(); d > best {
			best, i1 = d, i
		}
	}
	if best < hullEpsilon {
		return 0, 0, 0, 0, errors.New("points are coincident")
	}

	line := pts[i1].Sub(pts[i0])
	i2, best := 0, 0.0
	for i, p := range pts {
		if d := line.Cross(p.Sub(pts[i0])).Norm2(); d > best {
			best, i2 = d, i
		}
	}
	if best < hullEpsilon {
		return 0, 0, 0, 0, errors.New("points are collinear")
	}

	n := line.Cross(pts[i2].Sub(pts[i0]))
	i3, best := 0, 0.0
	for i, p := range pts {
		if d := math.Abs(n.Dot(p.Sub(pts[i0]))); d > best {
			best, i3 = d, i
		}
	}
	if best < hullEpsilon {
		return 0, 0, 0, 0, errors.New("points are coplanar")
	}
	return i0, i1, i2, i3, nil
}

// hullVolume integrates the signed tetrahedra of outward-oriented faces.
func hullVolume(pts []r3.Vector, faces []hullFace) float64 {
	total := 0.0
	for _, f := range faces {
		total += pts[f.a].Dot(pts[f.b].Cross(pts[f.c])) / 6.0
	}
	return math.Abs(total)
}

// MeshVolume estimates volume by wrapping the food points in a convex hull.
// Degenerate inputs (too few points, coplanar points, hull failure) fall
// back to voxel counting with a warning so the estimate never simply
// disappears.
func MeshVolume(food pointcloud.PointCloud, voxelSizeMm, scaleFactor float64) Result {
	if food == nil || food.Size() == 0 {
		return Result{Method: MethodEmpty, ScaleFactor: scaleFactor}
	}

	working := food
	if working.Size() > hullMaxPoints {
		working = pointcloud.VoxelDownsample(working, voxelSizeMm)
	}
	pts := pointcloud.ToVectors(working)

	faces, err := convexHull(pts)
	if err != nil {
		res := VoxelVolume(food, voxelSizeMm, scaleFactor)
		res.Warnings = append(res.Warnings, "convex hull failed, fell back to voxel counting: "+err.Error())
		return res
	}

	s3 := scaleFactor * scaleFactor * scaleFactor
	return Result{
		VolumeMl:    hullVolume(pts, faces) * s3 / 1000.0,
		Method:      MethodMesh,
		ScaleFactor: scaleFactor,
		TotalCount:  food.Size(),
		ValidCount:  len(pts),
	}
}
