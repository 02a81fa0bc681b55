package spatialmath

import (
	"fmt"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const zeroAreaMm2 = 1e-9

// Mesh is a set of triangles over a shared vertex list.
type Mesh struct {
	vertices  []r3.Vector
	indices   [][3]int
	triangles []*Triangle
}

// NewMesh creates a mesh from a vertex list and triangle index triples.
// A mesh with no vertices, or with an index outside the vertex list, is an
// unrecoverable input error.
func NewMesh(vertices []r3.Vector, indices [][3]int) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, errors.New("mesh has no vertices")
	}
	triangles := make([]*Triangle, 0, len(indices))
	for i, idx := range indices {
		for _, v := range idx {
			if v < 0 || v >= len(vertices) {
				return nil, errors.Errorf("triangle %d references vertex %d, mesh has %d vertices", i, v, len(vertices))
			}
		}
		triangles = append(triangles, NewTriangle(vertices[idx[0]], vertices[idx[1]], vertices[idx[2]]))
	}
	return &Mesh{vertices: vertices, indices: indices, triangles: triangles}, nil
}

// Vertices returns the vertex list.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Indices returns the triangle index triples.
func (m *Mesh) Indices() [][3]int {
	return m.indices
}

// Triangles returns the triangles of the mesh.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Transform returns a new mesh with every vertex moved by the given transform.
func (m *Mesh) Transform(rt *RigidTransform) *Mesh {
	vertices := make([]r3.Vector, len(m.vertices))
	for i, v := range m.vertices {
		vertices[i] = rt.Apply(v)
	}
	out, err := NewMesh(vertices, m.indices)
	if err != nil {
		// indices were already validated on the way in
		panic(err)
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the mesh vertices.
func (m *Mesh) Bounds() (r3.Vector, r3.Vector) {
	min := m.vertices[0]
	max := m.vertices[0]
	for _, v := range m.vertices[1:] {
		min = r3.Vector{X: minf(min.X, v.X), Y: minf(min.Y, v.Y), Z: minf(min.Z, v.Z)}
		max = r3.Vector{X: maxf(max.X, v.X), Y: maxf(max.Y, v.Y), Z: maxf(max.Z, v.Z)}
	}
	return min, max
}

// SamplePoints draws n points from the mesh surface, area weighted, with a
// fixed seed so a cached sample is reproducible across runs.
func (m *Mesh) SamplePoints(n int) []r3.Vector {
	if n <= 0 || len(m.triangles) == 0 {
		return nil
	}
	cumulative := make([]float64, len(m.triangles))
	total := 0.0
	for i, tri := range m.triangles {
		total += tri.Area()
		cumulative[i] = total
	}
	if total <= zeroAreaMm2 {
		return nil
	}

	//nolint:gosec
	rnd := rand.New(rand.NewSource(1))
	pts := make([]r3.Vector, 0, n)
	for i := 0; i < n; i++ {
		target := rnd.Float64() * total
		lo, hi := 0, len(cumulative)-1
		for lo < hi {
			mid := (lo + hi) / 2
			if cumulative[mid] < target {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		tri := m.triangles[lo]
		// uniform barycentric sample
		u, v := rnd.Float64(), rnd.Float64()
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		p := tri.p0.Add(tri.p1.Sub(tri.p0).Mul(u)).Add(tri.p2.Sub(tri.p0).Mul(v))
		pts = append(pts, p)
	}
	return pts
}

// EnclosedVolume computes the volume enclosed by the mesh via signed
// tetrahedra. The result is only meaningful for a watertight mesh.
func (m *Mesh) EnclosedVolume() float64 {
	signed := 0.0
	for _, tri := range m.triangles {
		signed += tri.p0.Dot(tri.p1.Cross(tri.p2)) / 6
	}
	if signed < 0 {
		return -signed
	}
	return signed
}

// IsWatertight reports whether every undirected edge of the mesh is shared by
// exactly two triangles.
func (m *Mesh) IsWatertight() bool {
	type edge struct{ a, b int }
	counts := make(map[edge]int)
	for _, idx := range m.indices {
		for e := 0; e < 3; e++ {
			a, b := idx[e], idx[(e+1)%3]
			if a > b {
				a, b = b, a
			}
			counts[edge{a, b}]++
		}
	}
	for _, c := range counts {
		if c != 2 {
			return false
		}
	}
	return len(counts) > 0
}

// Validate returns a list of quality warnings: degenerate triangles,
// unreferenced vertices, or a non-watertight surface. These degrade raycast
// hit rate and volume accuracy locally but are not fatal.
func (m *Mesh) Validate() []string {
	var warnings []string

	zeroArea := 0
	for _, tri := range m.triangles {
		if tri.Area() < zeroAreaMm2 {
			zeroArea++
		}
	}
	if zeroArea > 0 {
		warnings = append(warnings, fmt.Sprintf("mesh has %d zero-area triangles", zeroArea))
	}

	referenced := make([]bool, len(m.vertices))
	for _, idx := range m.indices {
		for _, v := range idx {
			referenced[v] = true
		}
	}
	unreferenced := 0
	for _, r := range referenced {
		if !r {
			unreferenced++
		}
	}
	if unreferenced > 0 {
		warnings = append(warnings, fmt.Sprintf("mesh has %d unreferenced vertices", unreferenced))
	}

	if !m.IsWatertight() {
		warnings = append(warnings, "mesh is not watertight")
	}
	return warnings
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
