package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/SoyaOda/foodscan/spatialmath"
)

// hemisphereCloud is a synthetic bowl scan: the lower half of a sphere of
// the given radius, opening toward -Z.
func hemisphereCloud(radius float64) PointCloud {
	cloud := New()
	for i := 0; i < 40; i++ {
		for j := 8; j <= 15; j++ {
			theta := float64(i) * 2 * math.Pi / 40
			phi := float64(j) * math.Pi / 15
			cloud.Add(r3.Vector{
				X: radius * math.Sin(phi) * math.Cos(theta),
				Y: radius * math.Sin(phi) * math.Sin(theta),
				Z: radius * math.Cos(phi),
			})
		}
	}
	return cloud
}

func TestRegisterICPIdentical(t *testing.T) {
	cloud := hemisphereCloud(50)
	tree := ToKDTree(cloud)
	normals := EstimateNormals(cloud, tree, 8)

	res, err := RegisterICP(cloud, tree, normals, nil, DefaultICPConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Fitness, test.ShouldEqual, 1)
	test.That(t, res.RMSE, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, res.Converged, test.ShouldBeTrue)

	angle, transDist := spatialmath.Delta(res.Transform, spatialmath.NewRigidTransform())
	test.That(t, angle, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, transDist, test.ShouldAlmostEqual, 0, 1e-3)
}

func TestRegisterICPTranslation(t *testing.T) {
	target := hemisphereCloud(50)
	offset := r3.Vector{X: 2, Y: -1.5, Z: 3}
	source := New()
	target.Iterate(0, 0, func(p r3.Vector) bool {
		source.Add(p.Sub(offset))
		return true
	})

	tree := ToKDTree(target)
	normals := EstimateNormals(target, tree, 8)
	res, err := RegisterICP(source, tree, normals, nil, DefaultICPConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Fitness, test.ShouldBeGreaterThan, 0.9)
	test.That(t, res.RMSE, test.ShouldBeLessThan, 0.5)

	recovered := res.Transform.Translation()
	test.That(t, recovered.X, test.ShouldAlmostEqual, offset.X, 0.5)
	test.That(t, recovered.Y, test.ShouldAlmostEqual, offset.Y, 0.5)
	test.That(t, recovered.Z, test.ShouldAlmostEqual, offset.Z, 0.5)
}

func TestRegisterICPErrors(t *testing.T) {
	cloud := hemisphereCloud(50)
	tree := ToKDTree(cloud)
	normals := EstimateNormals(cloud, tree, 8)

	_, err := RegisterICP(New(), tree, normals, nil, DefaultICPConfig())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = RegisterICP(cloud, ToKDTree(New()), nil, nil, DefaultICPConfig())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = RegisterICP(cloud, tree, normals[:3], nil, DefaultICPConfig())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegisterICPNonOverlapping(t *testing.T) {
	target := hemisphereCloud(50)
	source := New()
	target.Iterate(0, 0, func(p r3.Vector) bool {
		source.Add(p.Add(r3.Vector{X: 1000, Y: 1000, Z: 1000}))
		return true
	})

	tree := ToKDTree(target)
	normals := EstimateNormals(target, tree, 8)
	// force a hopeless start: no correspondences within range
	res, err := RegisterICP(source, tree, normals, spatialmath.NewRigidTransform(), DefaultICPConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Fitness, test.ShouldEqual, 0)
	test.That(t, res.Converged, test.ShouldBeFalse)
}

// cornerScene is a floor patch braced by two perpendicular walls, which pins
// down all six degrees of freedom with exactly known correspondences.
func cornerScene() (PointCloud, Normals) {
	target := New()
	normals := Normals{}
	for _, x := range []float64{-10, -5, 0, 5, 10} {
		for _, y := range []float64{-10, -5, 0, 5, 10} {
			target.Add(r3.Vector{X: x, Y: y, Z: 0})
			normals = append(normals, r3.Vector{X: 0, Y: 0, Z: 1})
		}
	}
	for _, y := range []float64{-10, -5, 0, 5, 10} {
		for _, z := range []float64{5, 10, 15, 20, 25} {
			target.Add(r3.Vector{X: -20, Y: y, Z: z})
			normals = append(normals, r3.Vector{X: 1, Y: 0, Z: 0})
		}
	}
	for _, x := range []float64{-10, -5, 0, 5, 10} {
		for _, z := range []float64{5, 10, 15, 20, 25} {
			target.Add(r3.Vector{X: x, Y: -20, Z: z})
			normals = append(normals, r3.Vector{X: 0, Y: 1, Z: 0})
		}
	}
	return target, normals
}

func TestRegisterICPTransientCorrespondences(t *testing.T) {
	target, normals := cornerScene()

	// the whole corner shifted up by 1, plus a few stray points hanging
	// just inside correspondence range below the floor. the strays match
	// at the starting pose and fall out of range on the first update, so
	// the start has the best fitness while the true pose is where the
	// registration settles.
	source := New()
	target.Iterate(0, 0, func(p r3.Vector) bool {
		source.Add(p.Add(r3.Vector{X: 0, Y: 0, Z: 1}))
		return true
	})
	for _, xy := range [][2]float64{{10, 10}, {10, -10}, {-10, 10}, {-10, -10}, {0, 0}} {
		source.Add(r3.Vector{X: xy[0], Y: xy[1], Z: -2.9})
	}

	tree := ToKDTree(target)
	cfg := ICPConfig{MaxIterations: 50, MaxCorrespondenceDistance: 3, Tolerance: 1e-6}
	res, err := RegisterICP(source, tree, normals, spatialmath.NewRigidTransform(), cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Converged, test.ShouldBeTrue)
	test.That(t, res.RMSE, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, res.Fitness, test.ShouldAlmostEqual, 75.0/80.0, 1e-3)

	trans := res.Transform.Translation()
	test.That(t, trans.X, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, trans.Y, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, trans.Z, test.ShouldAlmostEqual, -1, 1e-3)
	angle, _ := spatialmath.Delta(res.Transform, spatialmath.NewRigidTransform())
	test.That(t, angle, test.ShouldAlmostEqual, 0, 1e-3)
}
