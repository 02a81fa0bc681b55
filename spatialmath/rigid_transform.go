// Package spatialmath defines the geometric primitives the scanner aligns and
// intersects: rigid transforms, triangles and triangle meshes.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const orthonormalTolerance = 1e-6

// RigidTransform is a rotation plus a translation. It is never mutated in
// place; composition always produces a new transform.
type RigidTransform struct {
	rot   *mat.Dense // 3x3 orthonormal
	trans r3.Vector
}

// NewRigidTransform returns the identity transform.
func NewRigidTransform() *RigidTransform {
	return &RigidTransform{rot: identity3(), trans: r3.Vector{}}
}

// NewTranslationTransform returns a pure translation.
func NewTranslationTransform(t r3.Vector) *RigidTransform {
	return &RigidTransform{rot: identity3(), trans: t}
}

// NewRigidTransformFromRotation returns a transform from a 3x3 rotation block
// and a translation, checking that the rotation block is orthonormal with
// determinant +1.
func NewRigidTransformFromRotation(rot mat.Matrix, trans r3.Vector) (*RigidTransform, error) {
	r, c := rot.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("rotation block must be 3x3, got %dx%d", r, c)
	}
	if err := checkOrthonormal(rot); err != nil {
		return nil, err
	}
	out := mat.NewDense(3, 3, nil)
	out.Copy(rot)
	return &RigidTransform{rot: out, trans: trans}, nil
}

// NewRigidTransformFromMatrix returns a transform from a 4x4 homogeneous
// matrix whose upper-left block is an orthonormal rotation.
func NewRigidTransformFromMatrix(m mat.Matrix) (*RigidTransform, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return nil, errors.Errorf("homogeneous matrix must be 4x4, got %dx%d", r, c)
	}
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, m.At(i, j))
		}
	}
	trans := r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
	return NewRigidTransformFromRotation(rot, trans)
}

// NewRigidTransformFromEulerAngles builds a transform from ZYX Euler angles
// (radians) and a translation. Registration uses it for its per-iteration
// small-angle updates.
func NewRigidTransformFromEulerAngles(alpha, beta, gamma float64, trans r3.Vector) *RigidTransform {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	cb, sb := math.Cos(beta), math.Sin(beta)
	cg, sg := math.Cos(gamma), math.Sin(gamma)

	// R = Rz(gamma) * Ry(beta) * Rx(alpha)
	rot := mat.NewDense(3, 3, []float64{
		cb * cg, sa*sb*cg - ca*sg, ca*sb*cg + sa*sg,
		cb * sg, sa*sb*sg + ca*cg, ca*sb*sg - sa*cg,
		-sb, sa * cb, ca * cb,
	})
	return &RigidTransform{rot: rot, trans: trans}
}

// Apply transforms the given point.
func (rt *RigidTransform) Apply(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: rt.rot.At(0, 0)*p.X + rt.rot.At(0, 1)*p.Y + rt.rot.At(0, 2)*p.Z + rt.trans.X,
		Y: rt.rot.At(1, 0)*p.X + rt.rot.At(1, 1)*p.Y + rt.rot.At(1, 2)*p.Z + rt.trans.Y,
		Z: rt.rot.At(2, 0)*p.X + rt.rot.At(2, 1)*p.Y + rt.rot.At(2, 2)*p.Z + rt.trans.Z,
	}
}

// ApplyRotationOnly rotates the given vector without translating it. Useful
// for directions and normals.
func (rt *RigidTransform) ApplyRotationOnly(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: rt.rot.At(0, 0)*p.X + rt.rot.At(0, 1)*p.Y + rt.rot.At(0, 2)*p.Z,
		Y: rt.rot.At(1, 0)*p.X + rt.rot.At(1, 1)*p.Y + rt.rot.At(1, 2)*p.Z,
		Z: rt.rot.At(2, 0)*p.X + rt.rot.At(2, 1)*p.Y + rt.rot.At(2, 2)*p.Z,
	}
}

// Compose returns the transform that applies b first and then a, as a new
// transform.
func Compose(a, b *RigidTransform) *RigidTransform {
	rot := mat.NewDense(3, 3, nil)
	rot.Mul(a.rot, b.rot)
	return &RigidTransform{
		rot:   rot,
		trans: a.ApplyRotationOnly(b.trans).Add(a.trans),
	}
}

// Inverse returns the inverse transform.
func (rt *RigidTransform) Inverse() *RigidTransform {
	inv := mat.NewDense(3, 3, nil)
	inv.Copy(rt.rot.T())
	out := &RigidTransform{rot: inv}
	out.trans = out.ApplyRotationOnly(rt.trans).Mul(-1)
	return out
}

// Translation returns the translation component.
func (rt *RigidTransform) Translation() r3.Vector {
	return rt.trans
}

// Rotation returns a copy of the 3x3 rotation block.
func (rt *RigidTransform) Rotation() *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	out.Copy(rt.rot)
	return out
}

// Matrix returns the transform as a 4x4 homogeneous matrix.
func (rt *RigidTransform) Matrix() *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, rt.rot.At(i, j))
		}
	}
	out.Set(0, 3, rt.trans.X)
	out.Set(1, 3, rt.trans.Y)
	out.Set(2, 3, rt.trans.Z)
	out.Set(3, 3, 1)
	return out
}

// Delta returns the rotation angle (radians) and translation distance between
// two transforms. Useful for convergence and fixed-point checks.
func Delta(a, b *RigidTransform) (float64, float64) {
	rel := mat.NewDense(3, 3, nil)
	rel.Mul(a.rot.T(), b.rot)
	trace := rel.At(0, 0) + rel.At(1, 1) + rel.At(2, 2)
	cos := (trace - 1) / 2
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos), a.trans.Sub(b.trans).Norm()
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

func checkOrthonormal(rot mat.Matrix) error {
	var prod mat.Dense
	prod.Mul(rot.T(), rot)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(prod.At(i, j)-want) > orthonormalTolerance {
				return errors.New("rotation block is not orthonormal")
			}
		}
	}
	if det := mat.Det(rot); math.Abs(det-1) > orthonormalTolerance {
		return errors.Errorf("rotation block determinant is %f, not +1", det)
	}
	return nil
}
