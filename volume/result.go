// Package volume turns aligned food points and depth observations into
// absolute volume estimates in milliliters.
package volume

import (
	"gonum.org/v1/gonum/stat"
)

// Method names the integration strategy that produced a result.
type Method string

const (
	// MethodVoxel counts occupied voxels of the food point cloud.
	MethodVoxel Method = "voxel"
	// MethodMesh encloses the food points in a convex hull and integrates
	// the hull volume.
	MethodMesh Method = "mesh"
	// MethodHeightfieldPlane integrates per-pixel heights above the
	// container's rim plane.
	MethodHeightfieldPlane Method = "heightfield-plane"
	// MethodHeightfieldRaycast integrates per-pixel heights above the
	// container's raycast surface.
	MethodHeightfieldRaycast Method = "heightfield-raycast"
	// MethodEmpty marks a result for which no material was observed.
	MethodEmpty Method = "empty"
)

// HeightStats summarizes the per-pixel height column of a heightfield
// integration, in millimeters.
type HeightStats struct {
	MeanMm   float64
	MinMm    float64
	MaxMm    float64
	StdDevMm float64
}

// Result is a volume estimate plus the bookkeeping needed to judge it.
type Result struct {
	// VolumeMl is the estimated volume in milliliters.
	VolumeMl float64
	Method   Method
	// ScaleFactor is the alignment scale correction that was applied,
	// cubed, to the raw geometric volume.
	ScaleFactor float64
	// TotalCount is how many input elements (points or pixels) were
	// considered; ValidCount is how many contributed volume.
	TotalCount int
	ValidCount int
	// Heights is populated by the heightfield methods only.
	Heights HeightStats
	// Warnings records degradations such as a hull fallback.
	Warnings []string
}

func heightStats(heights []float64) HeightStats {
	if len(heights) == 0 {
		return HeightStats{}
	}
	min, max := heights[0], heights[0]
	for _, h := range heights[1:] {
		if h < min {
			min = h
		}
		if h > max {
			max = h
		}
	}
	mean, std := stat.MeanStdDev(heights, nil)
	if len(heights) < 2 {
		std = 0
	}
	return HeightStats{MeanMm: mean, MinMm: min, MaxMm: max, StdDevMm: std}
}

// Mass converts a volume estimate to grams given a density in g/ml.
func Mass(volumeMl, densityGPerMl float64) float64 {
	return volumeMl * densityGPerMl
}
