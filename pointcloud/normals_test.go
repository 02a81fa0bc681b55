package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestEstimateNormalsPlane(t *testing.T) {
	// a flat grid in the XY plane; every normal must be ±Z
	cloud := New()
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			cloud.Add(NewVector(float64(x), float64(y), 0))
		}
	}
	tree := ToKDTree(cloud)
	normals := EstimateNormals(cloud, tree, 8)
	test.That(t, len(normals), test.ShouldEqual, cloud.Size())
	for _, n := range normals {
		test.That(t, math.Abs(n.Z), test.ShouldAlmostEqual, 1, 1e-6)
		test.That(t, n.Norm(), test.ShouldAlmostEqual, 1, 1e-6)
	}
}

func TestEstimateNormalsSphere(t *testing.T) {
	// on a sphere the normal at p is radial, up to sign
	cloud := New()
	for i := 0; i < 30; i++ {
		for j := 1; j < 15; j++ {
			theta := float64(i) * 2 * math.Pi / 30
			phi := float64(j) * math.Pi / 15
			cloud.Add(r3.Vector{
				X: 50 * math.Sin(phi) * math.Cos(theta),
				Y: 50 * math.Sin(phi) * math.Sin(theta),
				Z: 50 * math.Cos(phi),
			})
		}
	}
	tree := ToKDTree(cloud)
	normals := EstimateNormals(cloud, tree, 8)

	aligned := 0
	i := 0
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		radial := p.Normalize()
		if math.Abs(normals[i].Dot(radial)) > 0.9 {
			aligned++
		}
		i++
		return true
	})
	test.That(t, float64(aligned)/float64(cloud.Size()), test.ShouldBeGreaterThan, 0.95)
}
