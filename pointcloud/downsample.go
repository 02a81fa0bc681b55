package pointcloud

import (
	"github.com/golang/geo/r3"
)

// VoxelCoords stores voxel coordinates in voxel grid axes.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// GetVoxelCoordinates computes voxel coordinates in a grid with origin ptMin
// and edge length voxelSize.
func GetVoxelCoordinates(pt, ptMin r3.Vector, voxelSize float64) VoxelCoords {
	return VoxelCoords{
		I: int64((pt.X - ptMin.X) / voxelSize),
		J: int64((pt.Y - ptMin.Y) / voxelSize),
		K: int64((pt.Z - ptMin.Z) / voxelSize),
	}
}

// VoxelDownsample quantizes the cloud onto a regular grid of the given edge
// length and returns a new cloud with one point per occupied voxel, placed at
// the centroid of the points that fell into it. A non-positive voxel size
// returns the input unchanged.
func VoxelDownsample(cloud PointCloud, voxelSizeMm float64) PointCloud {
	if voxelSizeMm <= 0 || cloud.Size() == 0 {
		return cloud
	}
	meta := cloud.MetaData()
	ptMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}

	type accum struct {
		sum r3.Vector
		n   int
	}
	voxels := make(map[VoxelCoords]*accum)
	order := make([]VoxelCoords, 0)
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		c := GetVoxelCoordinates(p, ptMin, voxelSizeMm)
		a, ok := voxels[c]
		if !ok {
			a = &accum{}
			voxels[c] = a
			order = append(order, c)
		}
		a.sum = a.sum.Add(p)
		a.n++
		return true
	})

	out := NewWithPrealloc(len(voxels))
	for _, c := range order {
		a := voxels[c]
		out.Add(a.sum.Mul(1 / float64(a.n)))
	}
	return out
}

// CountOccupiedVoxels returns the number of grid cells of the given edge
// length that contain at least one point of the cloud.
func CountOccupiedVoxels(cloud PointCloud, voxelSizeMm float64) int {
	if voxelSizeMm <= 0 || cloud.Size() == 0 {
		return 0
	}
	meta := cloud.MetaData()
	ptMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
	voxels := make(map[VoxelCoords]bool)
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		voxels[GetVoxelCoordinates(p, ptMin, voxelSizeMm)] = true
		return true
	})
	return len(voxels)
}
