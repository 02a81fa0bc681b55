// Package scanner runs the full estimation pipeline: one depth snapshot and
// a container mask in, an absolute food volume with a confidence grade out.
package scanner

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/SoyaOda/foodscan/align"
	"github.com/SoyaOda/foodscan/pointcloud"
	"github.com/SoyaOda/foodscan/raycast"
	"github.com/SoyaOda/foodscan/refmodel"
	"github.com/SoyaOda/foodscan/rimage"
	"github.com/SoyaOda/foodscan/rimage/transform"
	"github.com/SoyaOda/foodscan/volume"
)

// rimThresholdMm separates food points from container points: only points
// deeper than the aligned container's rim by this margin count as food.
const rimThresholdMm = 5.0

// Confidence grades how much an estimate should be trusted.
type Confidence int

const (
	// ConfidenceNone means no estimate could be computed; the reported
	// volume is zero and must not be used.
	ConfidenceNone Confidence = iota
	// ConfidenceLow means an estimate was computed but at least one
	// health check failed; see Report.Reasons.
	ConfidenceLow
	// ConfidenceHigh means all health checks passed.
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "High"
	case ConfidenceLow:
		return "Low"
	default:
		return "NotComputable"
	}
}

// Report is the outcome of one estimation run.
type Report struct {
	Volume    volume.Result
	Alignment *align.Result
	// MassG is populated only when a density was configured.
	MassG      float64
	HasMass    bool
	Confidence Confidence
	// Reasons explains any confidence downgrade.
	Reasons []string
}

// Scanner estimates food volume from single depth snapshots of a known
// container. A Scanner is safe for concurrent use.
type Scanner struct {
	model  *refmodel.Model
	params *transform.PinholeCameraIntrinsics
	cfg    Config
	logger golog.Logger
}

// New builds a Scanner. Mesh quality issues on the reference model are
// logged but not fatal.
func New(model *refmodel.Model, params *transform.PinholeCameraIntrinsics, cfg Config, logger golog.Logger) (*Scanner, error) {
	if model == nil {
		return nil, errors.New("no reference model")
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range model.Warnings() {
		logger.Warnw("reference model quality issue", "warning", w)
	}
	return &Scanner{model: model, params: params, cfg: cfg, logger: logger}, nil
}

// Estimate runs the pipeline on one depth snapshot. The mask must cover the
// container and its contents. Recoverable degeneracies (an empty mask, no
// depth returns, no measurable container) produce a zero report with
// ConfidenceNone rather than an error; errors are reserved for inputs the
// pipeline cannot interpret at all.
func (s *Scanner) Estimate(dm *rimage.DepthMap, mask *rimage.Mask) (*Report, error) {
	if err := mask.CheckAgainst(dm); err != nil {
		return nil, err
	}
	depthScale := transform.DepthScale(s.cfg.UnitsPerMeter)

	observed, err := transform.DepthMapToPointCloud(dm, mask, s.params, depthScale)
	if err != nil {
		return nil, errors.Wrap(err, "projecting depth map")
	}
	if observed.Size() == 0 {
		return notComputable("no depth returns inside the mask"), nil
	}

	alignCfg := align.Config{
		MaxIterations: s.cfg.ICPMaxIterations,
		VoxelSizeMm:   s.cfg.VoxelSizeMm,
	}
	alignment, err := align.Align(s.model, observed, alignCfg)
	if errors.Is(err, align.ErrNoSpread) || errors.Is(err, align.ErrNoObservedPoints) {
		return notComputable(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("container aligned",
		"fitness", alignment.Fitness,
		"rmse", alignment.RMSE,
		"scale", alignment.ScaleFactor,
		"iterations", alignment.Iterations,
	)

	alignedMesh := s.model.Mesh().Transform(alignment.Transform)
	var reasons []string

	var vol volume.Result
	switch s.cfg.Method {
	case volume.MethodVoxel, volume.MethodMesh:
		meshMin, _ := alignedMesh.Bounds()
		food := extractFoodPoints(observed, meshMin)
		if s.cfg.Method == volume.MethodVoxel {
			vol = volume.VoxelVolume(food, s.cfg.VoxelSizeMm, alignment.ScaleFactor)
		} else {
			vol = volume.MeshVolume(food, s.cfg.VoxelSizeMm, alignment.ScaleFactor)
		}
	case volume.MethodHeightfieldPlane:
		rimMin, _ := alignedMesh.Bounds()
		vol, err = volume.PlaneHeightField(dm, mask, rimMin.Z, s.params, depthScale, alignment.ScaleFactor)
		if err != nil {
			return nil, err
		}
	case volume.MethodHeightfieldRaycast:
		scene := raycast.NewScene(alignedMesh)
		pixels := mask.PixelCoords()
		refDepths, hits := scene.CastToSurface(pixels, s.params)
		if rate := raycast.HitRate(hits); rate < s.cfg.MinHitRate {
			reasons = append(reasons, fmt.Sprintf("only %.0f%% of container rays hit the aligned model", rate*100))
		}
		vol, err = volume.RaycastHeightField(dm, mask, refDepths, hits, s.params, depthScale, alignment.ScaleFactor)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unknown volume method %q", s.cfg.Method)
	}

	if vol.Method == volume.MethodEmpty {
		rep := notComputable("no content above the container surface")
		rep.Volume = vol
		rep.Alignment = alignment
		return rep, nil
	}

	if alignment.Fitness < s.cfg.MinFitness {
		reasons = append(reasons, fmt.Sprintf("alignment fitness %.3f below %.3f", alignment.Fitness, s.cfg.MinFitness))
	}
	reasons = append(reasons, vol.Warnings...)

	confidence := ConfidenceHigh
	if len(reasons) > 0 {
		confidence = ConfidenceLow
	}

	rep := &Report{
		Volume:     vol,
		Alignment:  alignment,
		Confidence: confidence,
		Reasons:    reasons,
	}
	if s.cfg.DensityGPerMl > 0 {
		rep.MassG = volume.Mass(vol.VolumeMl, s.cfg.DensityGPerMl)
		rep.HasMass = true
	}
	return rep, nil
}

func notComputable(reason string) *Report {
	return &Report{
		Volume:     volume.Result{Method: volume.MethodEmpty},
		Confidence: ConfidenceNone,
		Reasons:    []string{reason},
	}
}

// extractFoodPoints keeps the observed points deeper than the container rim.
// In the camera frame the rim is the mesh's nearest extent, so food sits at
// larger z.
func extractFoodPoints(observed pointcloud.PointCloud, meshMin r3.Vector) pointcloud.PointCloud {
	food := pointcloud.New()
	observed.Iterate(0, 0, func(p r3.Vector) bool {
		if p.Z > meshMin.Z+rimThresholdMm {
			food.Add(p)
		}
		return true
	})
	return food
}
