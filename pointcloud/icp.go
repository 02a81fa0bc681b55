package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/SoyaOda/foodscan/spatialmath"
	"github.com/SoyaOda/foodscan/utils"
)

// ICPConfig holds the knobs of point-to-plane ICP registration. All distances
// are in millimeters.
type ICPConfig struct {
	// MaxIterations bounds the registration loop so it terminates even on
	// non-overlapping point sets.
	MaxIterations int
	// MaxCorrespondenceDistance is the farthest a source point may be from
	// its nearest target point and still count as a match.
	MaxCorrespondenceDistance float64
	// Tolerance stops iterating once the RMSE improves by less than this.
	Tolerance float64
}

// DefaultICPConfig returns the defaults used by the aligner.
func DefaultICPConfig() ICPConfig {
	return ICPConfig{
		MaxIterations:             50,
		MaxCorrespondenceDistance: 6.0,
		Tolerance:                 1e-6,
	}
}

// RegistrationResult reports the outcome of a registration. Fitness and RMSE
// are health indicators, not guarantees; callers should treat a low fitness
// as a failed alignment.
type RegistrationResult struct {
	// Transform moves source points onto the target.
	Transform *spatialmath.RigidTransform
	// Fitness is the fraction of source points with a close correspondence.
	Fitness float64
	// RMSE is the root-mean-square distance of matched pairs.
	RMSE float64
	// Iterations is how many update steps ran.
	Iterations int
	// Converged is whether the loop stopped on tolerance rather than the
	// iteration cap.
	Converged bool
}

type icpRow struct {
	a [6]float64
	b float64
	d float64
}

// RegisterICP aligns the source cloud to the target using point-to-plane ICP,
// starting from the given initial transform. targetNormals must be in the
// target cloud's iteration order. Failure to converge is not an error; the
// best-effort transform is returned with its fitness as the health signal.
func RegisterICP(
	source PointCloud,
	target *KDTree,
	targetNormals Normals,
	initial *spatialmath.RigidTransform,
	cfg ICPConfig,
) (*RegistrationResult, error) {
	if source == nil || source.Size() == 0 {
		return nil, errors.New("no source points to register")
	}
	if target == nil || target.Size() == 0 {
		return nil, errors.New("no target points to register against")
	}
	if len(targetNormals) != target.Size() {
		return nil, errors.Errorf("have %d target normals for %d target points", len(targetNormals), target.Size())
	}
	if initial == nil {
		initial = spatialmath.NewRigidTransform()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultICPConfig().MaxIterations
	}
	if cfg.MaxCorrespondenceDistance <= 0 {
		cfg.MaxCorrespondenceDistance = DefaultICPConfig().MaxCorrespondenceDistance
	}

	srcPts := ToVectors(source)
	current := initial
	best := &RegistrationResult{Transform: current, Fitness: 0, RMSE: math.Inf(1)}
	prevRMSE := math.Inf(1)

	for iter := 0; ; iter++ {
		rows := gatherCorrespondences(srcPts, target, targetNormals, current, cfg.MaxCorrespondenceDistance)

		fitness := float64(len(rows)) / float64(len(srcPts))
		rmse := 0.0
		if len(rows) > 0 {
			sum := 0.0
			for _, r := range rows {
				sum += r.d * r.d
			}
			rmse = math.Sqrt(sum / float64(len(rows)))
		}
		if fitness > best.Fitness || (fitness == best.Fitness && rmse < best.RMSE) {
			best = &RegistrationResult{Transform: current, Fitness: fitness, RMSE: rmse, Iterations: iter}
		}
		best.Iterations = iter

		// report the iterate whose RMSE plateaued, which is not always
		// the highest-fitness one
		if math.Abs(prevRMSE-rmse) < cfg.Tolerance {
			return &RegistrationResult{
				Transform:  current,
				Fitness:    fitness,
				RMSE:       rmse,
				Iterations: iter,
				Converged:  true,
			}, nil
		}
		if iter >= cfg.MaxIterations || len(rows) < 6 {
			return best, nil
		}
		prevRMSE = rmse

		// linearized point-to-plane solve for [rotation vector, translation]
		a := mat.NewDense(len(rows), 6, nil)
		b := mat.NewVecDense(len(rows), nil)
		for i, r := range rows {
			a.SetRow(i, r.a[:])
			b.SetVec(i, r.b)
		}
		x := mat.NewVecDense(6, nil)
		if err := x.SolveVec(a, b); err != nil {
			// degenerate geometry, keep the best effort so far
			return best, nil
		}
		delta := spatialmath.NewRigidTransformFromEulerAngles(
			x.AtVec(0), x.AtVec(1), x.AtVec(2),
			r3.Vector{X: x.AtVec(3), Y: x.AtVec(4), Z: x.AtVec(5)},
		)
		current = spatialmath.Compose(delta, current)
	}
}

// gatherCorrespondences finds, for each transformed source point, its nearest
// target point within maxDist and emits the linearized point-to-plane row.
// Each iteration of the registration is sequential, but the nearest neighbor
// search inside one is data parallel.
func gatherCorrespondences(
	srcPts Vectors,
	target *KDTree,
	targetNormals Normals,
	current *spatialmath.RigidTransform,
	maxDist float64,
) []icpRow {
	groupRows := make([][]icpRow, utils.ParallelFactor)
	utils.GroupWorkParallel(len(srcPts), func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		local := make([]icpRow, 0, groupSize)
		return func(memberNum, workNum int) {
				p := current.Apply(srcPts[workNum])
				q, qIdx, dist, found := target.Nearest(p)
				if !found || dist > maxDist {
					return
				}
				n := targetNormals[qIdx]
				if n.Norm2() < 1e-12 {
					return
				}
				c := p.Cross(n)
				local = append(local, icpRow{
					a: [6]float64{c.X, c.Y, c.Z, n.X, n.Y, n.Z},
					b: -(p.Sub(q)).Dot(n),
					d: dist,
				})
			}, func() {
				groupRows[groupNum] = local
			}
	})

	rows := make([]icpRow, 0, len(srcPts))
	for _, g := range groupRows {
		rows = append(rows, g...)
	}
	return rows
}
