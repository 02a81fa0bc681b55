// Package align fits a known container's reference model to an observed
// point cloud, producing a rigid transform plus a scale correction factor
// derived from the container's rim diameter.
package align

import (
	"github.com/pkg/errors"

	"github.com/SoyaOda/foodscan/pointcloud"
	"github.com/SoyaOda/foodscan/refmodel"
	"github.com/SoyaOda/foodscan/spatialmath"
)

// ErrNoObservedPoints means the observed cloud was empty, so there is
// nothing to align against.
var ErrNoObservedPoints = errors.New("no observed container points")

// ErrNoSpread means the observed points have no measurable planar extent,
// so neither a rim diameter nor a meaningful registration can be computed.
var ErrNoSpread = errors.New("observed container points have no measurable spread")

const (
	normalNeighborhood = 16
	// correspondence gating scales with the downsampling resolution so a
	// coarser cloud still finds matches.
	correspondenceFactor = 3.0
	minDiameterMm        = 1e-6
)

// Config holds the aligner's tuning knobs.
type Config struct {
	// MaxIterations bounds the ICP refinement loop.
	MaxIterations int
	// VoxelSizeMm is the downsampling resolution applied to both clouds
	// before registration.
	VoxelSizeMm float64
}

// DefaultConfig returns the aligner defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 50,
		VoxelSizeMm:   2.0,
	}
}

// Result is an alignment outcome. Transform maps reference model coordinates
// into the camera frame of the observed cloud.
type Result struct {
	Transform *spatialmath.RigidTransform
	// Fitness and RMSE come from the underlying registration.
	Fitness float64
	RMSE    float64
	// ScaleFactor corrects depth-driven size error: the ratio of the
	// container's known rim diameter to the one measured in the observation.
	ScaleFactor float64
	// MeasuredDiameterMm is the rim diameter estimated from the observed
	// points, before any correction.
	MeasuredDiameterMm float64
	Iterations         int
	Converged          bool
}

// Align registers the reference model against the observed container points.
func Align(model *refmodel.Model, observed pointcloud.PointCloud, cfg Config) (*Result, error) {
	return AlignWithInitial(model, observed, nil, cfg)
}

// AlignWithInitial is Align with an explicit starting transform. A nil
// initial transform seeds registration by matching cloud centroids.
func AlignWithInitial(
	model *refmodel.Model,
	observed pointcloud.PointCloud,
	initial *spatialmath.RigidTransform,
	cfg Config,
) (*Result, error) {
	if observed == nil || observed.Size() == 0 {
		return nil, ErrNoObservedPoints
	}
	if cfg.VoxelSizeMm <= 0 {
		cfg.VoxelSizeMm = DefaultConfig().VoxelSizeMm
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}

	// The scale factor comes from the raw observation so downsampling
	// resolution cannot bias the rim measurement.
	rim := pointcloud.MeasureRimDiameter(observed)
	if rim.DiameterMm < minDiameterMm {
		return nil, ErrNoSpread
	}
	scale := model.RealDiameterMm() / rim.DiameterMm

	source := pointcloud.VoxelDownsample(model.SamplePoints(), cfg.VoxelSizeMm)
	target := pointcloud.VoxelDownsample(observed, cfg.VoxelSizeMm)
	if target.Size() == 0 {
		return nil, ErrNoSpread
	}

	tree := pointcloud.ToKDTree(target)
	normals := pointcloud.EstimateNormals(target, tree, normalNeighborhood)

	if initial == nil {
		srcMeta := source.MetaData()
		tgtMeta := target.MetaData()
		srcCenter := srcMeta.Center(source.Size())
		tgtCenter := tgtMeta.Center(target.Size())
		initial = spatialmath.NewTranslationTransform(tgtCenter.Sub(srcCenter))
	}

	icpCfg := pointcloud.ICPConfig{
		MaxIterations:             cfg.MaxIterations,
		MaxCorrespondenceDistance: cfg.VoxelSizeMm * correspondenceFactor,
		Tolerance:                 pointcloud.DefaultICPConfig().Tolerance,
	}
	reg, err := pointcloud.RegisterICP(source, tree, normals, initial, icpCfg)
	if err != nil {
		return nil, errors.Wrap(err, "registering container model")
	}

	return &Result{
		Transform:          reg.Transform,
		Fitness:            reg.Fitness,
		RMSE:               reg.RMSE,
		ScaleFactor:        scale,
		MeasuredDiameterMm: rim.DiameterMm,
		Iterations:         reg.Iterations,
		Converged:          reg.Converged,
	}, nil
}
