package spatialmath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

const tetraPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 4
property list uchar int vertex_indices
end_header
0 0 0
10 0 0
0 10 0
0 0 10
3 0 1 2
3 0 1 3
3 0 2 3
3 1 2 3
`

func TestReadPLY(t *testing.T) {
	mesh, err := ReadPLY(strings.NewReader(tetraPLY))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(mesh.Vertices()), test.ShouldEqual, 4)
	test.That(t, len(mesh.Indices()), test.ShouldEqual, 4)
	test.That(t, mesh.IsWatertight(), test.ShouldBeTrue)
	// tetrahedron volume = (1/6)|a·(b×c)| = 1000/6
	test.That(t, mesh.EnclosedVolume(), test.ShouldAlmostEqual, 1000.0/6, 1e-6)
}

func TestReadPLYQuadFace(t *testing.T) {
	// quads get fan-triangulated
	quad := `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`
	mesh, err := ReadPLY(strings.NewReader(quad))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(mesh.Indices()), test.ShouldEqual, 2)
}

func TestReadPLYMalformed(t *testing.T) {
	_, err := ReadPLY(strings.NewReader("not a ply file"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadPLYFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "tetra.ply")
	test.That(t, os.WriteFile(fn, []byte(tetraPLY), 0o600), test.ShouldBeNil)

	mesh, err := ReadPLYFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(mesh.Vertices()), test.ShouldEqual, 4)

	_, err = ReadPLYFile(filepath.Join(t.TempDir(), "missing.ply"))
	test.That(t, err, test.ShouldNotBeNil)
}
