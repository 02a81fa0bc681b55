package volume

import (
	"github.com/SoyaOda/foodscan/pointcloud"
)

// DefaultVoxelSizeMm is the integration cell size when none is configured.
const DefaultVoxelSizeMm = 2.0

// VoxelVolume estimates volume by counting the voxels the food points occupy.
// Each occupied cell contributes its full cube, so the estimate is an upper
// bound for sparse clouds and converges as density grows. The scale factor is
// applied cubed since it corrects a linear measurement.
func VoxelVolume(food pointcloud.PointCloud, voxelSizeMm, scaleFactor float64) Result {
	if food == nil || food.Size() == 0 {
		return Result{Method: MethodEmpty, ScaleFactor: scaleFactor}
	}
	if voxelSizeMm <= 0 {
		voxelSizeMm = DefaultVoxelSizeMm
	}
	occupied := pointcloud.CountOccupiedVoxels(food, voxelSizeMm)
	cellMm3 := voxelSizeMm * voxelSizeMm * voxelSizeMm
	s3 := scaleFactor * scaleFactor * scaleFactor
	return Result{
		VolumeMl:    float64(occupied) * cellMm3 * s3 / 1000.0,
		Method:      MethodVoxel,
		ScaleFactor: scaleFactor,
		TotalCount:  food.Size(),
		ValidCount:  food.Size(),
	}
}
