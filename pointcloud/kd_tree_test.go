package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestKDTreeNearest(t *testing.T) {
	cloud := New()
	cloud.Add(NewVector(0, 0, 0))
	cloud.Add(NewVector(10, 0, 0))
	cloud.Add(NewVector(0, 10, 0))
	cloud.Add(NewVector(0, 0, 10))
	tree := ToKDTree(cloud)
	test.That(t, tree.Size(), test.ShouldEqual, 4)

	got, idx, dist, found := tree.Nearest(r3.Vector{X: 9, Y: 1, Z: 0})
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, got, test.ShouldResemble, r3.Vector{X: 10, Y: 0, Z: 0})
	test.That(t, idx, test.ShouldEqual, 1)
	test.That(t, dist, test.ShouldAlmostEqual, 1.4142135, 1e-4)
}

func TestKDTreeNearestEmpty(t *testing.T) {
	tree := ToKDTree(New())
	_, _, _, found := tree.Nearest(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, found, test.ShouldBeFalse)
}

func TestKDTreeKNearest(t *testing.T) {
	cloud := New()
	for i := 0; i < 20; i++ {
		cloud.Add(NewVector(float64(i), 0, 0))
	}
	tree := ToKDTree(cloud)

	pts, idxs := tree.KNearest(r3.Vector{X: 3.1, Y: 0, Z: 0}, 3)
	test.That(t, len(pts), test.ShouldEqual, 3)
	test.That(t, len(idxs), test.ShouldEqual, 3)
	xs := map[float64]bool{}
	for _, p := range pts {
		xs[p.X] = true
	}
	test.That(t, xs[2], test.ShouldBeTrue)
	test.That(t, xs[3], test.ShouldBeTrue)
	test.That(t, xs[4], test.ShouldBeTrue)

	// asking for more neighbors than points returns them all, with no
	// distance cutoff
	pts, _ = tree.KNearest(r3.Vector{X: 0, Y: 0, Z: 0}, 50)
	test.That(t, len(pts), test.ShouldEqual, 20)
	far := false
	for _, p := range pts {
		if p.X == 19 {
			far = true
		}
	}
	test.That(t, far, test.ShouldBeTrue)
}
