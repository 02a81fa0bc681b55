package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicPointCloud(t *testing.T) {
	cloud := New()
	test.That(t, cloud.Size(), test.ShouldEqual, 0)

	cloud.Add(NewVector(1, 2, 3))
	cloud.Add(NewVector(-1, -2, -3))
	cloud.Add(NewVector(3, 0, 0))
	test.That(t, cloud.Size(), test.ShouldEqual, 3)
	test.That(t, cloud.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	meta := cloud.MetaData()
	test.That(t, meta.MaxX, test.ShouldEqual, 3)
	test.That(t, meta.MinX, test.ShouldEqual, -1)
	test.That(t, meta.MaxZ, test.ShouldEqual, 3)
	test.That(t, meta.MinZ, test.ShouldEqual, -3)

	center := meta.Center(cloud.Size())
	test.That(t, center.X, test.ShouldAlmostEqual, 1)
	test.That(t, center.Y, test.ShouldAlmostEqual, 0)
	test.That(t, center.Z, test.ShouldAlmostEqual, 0)
}

func TestIterateBatching(t *testing.T) {
	cloud := New()
	for i := 0; i < 10; i++ {
		cloud.Add(NewVector(float64(i), 0, 0))
	}

	seen := map[float64]bool{}
	for batch := 0; batch < 3; batch++ {
		cloud.Iterate(3, batch, func(p r3.Vector) bool {
			test.That(t, seen[p.X], test.ShouldBeFalse)
			seen[p.X] = true
			return true
		})
	}
	test.That(t, len(seen), test.ShouldEqual, 10)

	// early stop
	count := 0
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		count++
		return count < 4
	})
	test.That(t, count, test.ShouldEqual, 4)
}

func TestVoxelDownsample(t *testing.T) {
	cloud := New()
	// two clusters of four points each, well separated
	for _, base := range []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 0}} {
		for _, d := range []r3.Vector{{X: 0.1, Y: 0, Z: 0}, {X: 0.3, Y: 0, Z: 0}, {X: 0, Y: 0.2, Z: 0}, {X: 0, Y: 0, Z: 0.2}} {
			cloud.Add(base.Add(d))
		}
	}

	down := VoxelDownsample(cloud, 2.0)
	test.That(t, down.Size(), test.ShouldEqual, 2)
	// each surviving point is the centroid of its cluster
	test.That(t, down.At(0).X, test.ShouldAlmostEqual, 0.1)
	test.That(t, down.At(1).X, test.ShouldAlmostEqual, 100.1)

	test.That(t, CountOccupiedVoxels(cloud, 2.0), test.ShouldEqual, 2)
	test.That(t, CountOccupiedVoxels(cloud, 0.05), test.ShouldEqual, 8)
}

func TestGetVoxelCoordinates(t *testing.T) {
	ptMin := r3.Vector{X: 0, Y: 0, Z: 0}
	a := GetVoxelCoordinates(r3.Vector{X: 0.9, Y: 1.9, Z: 2.9}, ptMin, 1.0)
	test.That(t, a.IsEqual(VoxelCoords{I: 0, J: 1, K: 2}), test.ShouldBeTrue)

	// same cell until a coordinate crosses the voxel edge
	b := GetVoxelCoordinates(r3.Vector{X: 0.1, Y: 1.1, Z: 2.1}, ptMin, 1.0)
	test.That(t, a.IsEqual(b), test.ShouldBeTrue)
	c := GetVoxelCoordinates(r3.Vector{X: 1.1, Y: 1.9, Z: 2.9}, ptMin, 1.0)
	test.That(t, a.IsEqual(c), test.ShouldBeFalse)

	// the grid origin shifts with the cloud minimum
	d := GetVoxelCoordinates(r3.Vector{X: 0.9, Y: 1.9, Z: 2.9}, r3.Vector{X: 0.5, Y: 0, Z: 0}, 1.0)
	test.That(t, d.IsEqual(a), test.ShouldBeTrue)
	e := GetVoxelCoordinates(r3.Vector{X: 1.9, Y: 1.9, Z: 2.9}, r3.Vector{X: 0.5, Y: 0, Z: 0}, 1.0)
	test.That(t, e.IsEqual(VoxelCoords{I: 1, J: 1, K: 2}), test.ShouldBeTrue)
}

func TestMeasureRimDiameterCircle(t *testing.T) {
	// flat ring of radius 40 in the XY plane with mild depth noise
	cloud := New()
	for i := 0; i < 360; i++ {
		a := float64(i) * math.Pi / 180
		cloud.Add(r3.Vector{X: 40 * math.Cos(a), Y: 40 * math.Sin(a), Z: 0.01 * math.Sin(7*a)})
	}

	rim := MeasureRimDiameter(cloud)
	test.That(t, rim.DiameterMm, test.ShouldAlmostEqual, 80, 1)
	test.That(t, rim.BandSize, test.ShouldBeGreaterThan, 0)
	test.That(t, math.Abs(rim.VerticalAxis.Z), test.ShouldAlmostEqual, 1, 1e-3)
}

func TestMeasureRimDiameterFlaredBowl(t *testing.T) {
	// truncated cone: narrow at depth, wide rim toward the camera. The rim
	// band must measure the wide opening, not the overall average.
	cloud := New()
	for ring := 0; ring <= 10; ring++ {
		z := float64(ring) * 3 // rim at z=0, base at z=30
		radius := 50 - 2*float64(ring)
		for i := 0; i < 72; i++ {
			a := float64(i) * math.Pi / 36
			cloud.Add(r3.Vector{X: radius * math.Cos(a), Y: radius * math.Sin(a), Z: z})
		}
	}

	rim := MeasureRimDiameter(cloud)
	test.That(t, rim.DiameterMm, test.ShouldAlmostEqual, 100, 2)
}

func TestMeasureRimDiameterDegenerate(t *testing.T) {
	cloud := New()
	rim := MeasureRimDiameter(cloud)
	test.That(t, rim.DiameterMm, test.ShouldEqual, 0)

	cloud.Add(NewVector(1, 1, 1))
	cloud.Add(NewVector(1, 1, 1))
	rim = MeasureRimDiameter(cloud)
	test.That(t, rim.DiameterMm, test.ShouldEqual, 0)
}
