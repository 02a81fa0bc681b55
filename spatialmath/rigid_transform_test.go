package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestRigidTransformIdentity(t *testing.T) {
	rt := NewRigidTransform()
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, rt.Apply(p), test.ShouldResemble, p)
	test.That(t, rt.Translation(), test.ShouldResemble, r3.Vector{})
}

func TestTranslationTransform(t *testing.T) {
	rt := NewTranslationTransform(r3.Vector{X: 10, Y: -5, Z: 2})
	got := rt.Apply(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, got, test.ShouldResemble, r3.Vector{X: 11, Y: -4, Z: 3})
	test.That(t, rt.ApplyRotationOnly(r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
}

func TestEulerRotation(t *testing.T) {
	// 90 degrees about Z maps +X to +Y
	rt := NewRigidTransformFromEulerAngles(0, 0, math.Pi/2, r3.Vector{})
	got := rt.Apply(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1)
	test.That(t, got.Z, test.ShouldAlmostEqual, 0)

	// 90 degrees about X maps +Y to +Z
	rt = NewRigidTransformFromEulerAngles(math.Pi/2, 0, 0, r3.Vector{})
	got = rt.Apply(r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 0)
	test.That(t, got.Z, test.ShouldAlmostEqual, 1)
}

func TestComposeOrder(t *testing.T) {
	rot := NewRigidTransformFromEulerAngles(0, 0, math.Pi/2, r3.Vector{})
	shift := NewTranslationTransform(r3.Vector{X: 5, Y: 0, Z: 0})

	// Compose(a, b) applies b first
	p := r3.Vector{X: 1, Y: 0, Z: 0}
	ab := Compose(rot, shift).Apply(p) // rotate(shift(p)) = rotate({6,0,0}) = {0,6,0}
	ba := Compose(shift, rot).Apply(p) // shift(rotate(p)) = shift({0,1,0}) = {5,1,0}
	test.That(t, ab.Y, test.ShouldAlmostEqual, 6)
	test.That(t, ab.X, test.ShouldAlmostEqual, 0)
	test.That(t, ba.X, test.ShouldAlmostEqual, 5)
	test.That(t, ba.Y, test.ShouldAlmostEqual, 1)
}

func TestInverse(t *testing.T) {
	rt := NewRigidTransformFromEulerAngles(0.3, -0.2, 1.1, r3.Vector{X: 4, Y: -7, Z: 2})
	inv := rt.Inverse()

	p := r3.Vector{X: 3, Y: 1, Z: -2}
	back := inv.Apply(rt.Apply(p))
	test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-9)
	test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-9)
	test.That(t, back.Z, test.ShouldAlmostEqual, p.Z, 1e-9)

	angle, dist := Delta(Compose(inv, rt), NewRigidTransform())
	test.That(t, angle, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, dist, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestNewRigidTransformFromRotation(t *testing.T) {
	_, err := NewRigidTransformFromRotation(mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}), r3.Vector{})
	test.That(t, err, test.ShouldBeNil)

	// a scaled matrix is not a rotation
	_, err = NewRigidTransformFromRotation(mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 2, 0,
		0, 0, 2,
	}), r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)

	// a reflection has determinant -1
	_, err = NewRigidTransformFromRotation(mat.NewDense(3, 3, []float64{
		-1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}), r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatrixRoundTrip(t *testing.T) {
	rt := NewRigidTransformFromEulerAngles(0.1, 0.2, 0.3, r3.Vector{X: 1, Y: 2, Z: 3})
	back, err := NewRigidTransformFromMatrix(rt.Matrix())
	test.That(t, err, test.ShouldBeNil)

	angle, dist := Delta(rt, back)
	test.That(t, angle, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, dist, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestDelta(t *testing.T) {
	a := NewRigidTransform()
	b := NewRigidTransformFromEulerAngles(0, 0, math.Pi/3, r3.Vector{X: 3, Y: 4, Z: 0})
	angle, dist := Delta(a, b)
	test.That(t, angle, test.ShouldAlmostEqual, math.Pi/3, 1e-9)
	test.That(t, dist, test.ShouldAlmostEqual, 5, 1e-9)
}
