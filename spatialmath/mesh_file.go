package spatialmath

import (
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadPLYFile reads a triangle mesh from a PLY file.
func ReadPLYFile(fn string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening mesh %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	m, err := ReadPLY(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading mesh %q", fn)
	}
	return m, nil
}

// ReadPLY reads a triangle mesh from PLY data. Faces with more than three
// vertices are fan triangulated.
func ReadPLY(r io.Reader) (mesh *Mesh, err error) {
	// goply panics on malformed input
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("malformed ply data: %v", p)
		}
	}()

	ply := goply.New(r)
	plyVertices := ply.Elements("vertex")
	plyFaces := ply.Elements("face")

	vertices := make([]r3.Vector, 0, len(plyVertices))
	for i, v := range plyVertices {
		x, xok := toFloat(v["x"])
		y, yok := toFloat(v["y"])
		z, zok := toFloat(v["z"])
		if !xok || !yok || !zok {
			return nil, errors.Errorf("ply vertex %d is missing a coordinate", i)
		}
		vertices = append(vertices, r3.Vector{X: x, Y: y, Z: z})
	}

	indices := make([][3]int, 0, len(plyFaces))
	for i, f := range plyFaces {
		raw, ok := f["vertex_indices"]
		if !ok {
			raw, ok = f["vertex_index"]
		}
		if !ok {
			return nil, errors.Errorf("ply face %d has no vertex indices", i)
		}
		face, ok := toIntSlice(raw)
		if !ok || len(face) < 3 {
			return nil, errors.Errorf("ply face %d has fewer than 3 vertices", i)
		}
		for j := 2; j < len(face); j++ {
			indices = append(indices, [3]int{face[0], face[j-1], face[j]})
		}
	}

	return NewMesh(vertices, indices)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	default:
		return 0, false
	}
}

func toIntSlice(v interface{}) ([]int, bool) {
	switch xs := v.(type) {
	case []interface{}:
		out := make([]int, 0, len(xs))
		for _, x := range xs {
			f, ok := toFloat(x)
			if !ok {
				return nil, false
			}
			out = append(out, int(f))
		}
		return out, true
	case []int:
		return xs, true
	case []int32:
		out := make([]int, 0, len(xs))
		for _, x := range xs {
			out = append(out, int(x))
		}
		return out, true
	case []uint32:
		out := make([]int, 0, len(xs))
		for _, x := range xs {
			out = append(out, int(x))
		}
		return out, true
	case []float64:
		out := make([]int, 0, len(xs))
		for _, x := range xs {
			out = append(out, int(x))
		}
		return out, true
	default:
		return nil, false
	}
}
