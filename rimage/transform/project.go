package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/SoyaOda/foodscan/pointcloud"
	"github.com/SoyaOda/foodscan/rimage"
)

// DepthMapToPointCloud projects the masked pixels of a depth map into a
// camera-space point cloud in millimeters. depthScale is the meters-per-unit
// scale of the depth samples. Pixels outside the mask or without a depth
// return are skipped; the absence of a point is the signal for "no data", so
// an empty cloud is not an error.
func DepthMapToPointCloud(
	dm *rimage.DepthMap,
	mask *rimage.Mask,
	params *PinholeCameraIntrinsics,
	depthScale float64,
) (pointcloud.PointCloud, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if dm == nil {
		return nil, errors.New("no depth map. Cannot project to pointcloud")
	}
	if mask != nil {
		if err := mask.CheckAgainst(dm); err != nil {
			return nil, err
		}
	}
	if depthScale <= 0 {
		depthScale = DepthScale(DefaultUnitsPerMeter)
	}

	pc := pointcloud.NewWithPrealloc(dm.Width() * dm.Height() / 4)
	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			if mask != nil && !mask.Get(x, y) {
				continue
			}
			d := dm.GetDepth(x, y)
			if d == 0 {
				continue
			}
			zMm := float64(d) * depthScale * 1000.
			px, py, pz := params.PixelToPoint(float64(x), float64(y), zMm)
			pc.Add(r3.Vector{X: px, Y: py, Z: pz})
		}
	}
	return pc, nil
}
