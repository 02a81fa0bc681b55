// Package pointcloud defines a point cloud and the geometric operations the
// scanning pipeline performs on one: projection products, downsampling,
// normal estimation, rigid registration and diameter measurement.
//
// Clouds hold positions in millimeters, camera space, z forward.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// PointCloud is a general purpose container of points.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data.
	MetaData() MetaData

	// Add places the given point in the cloud.
	Add(p r3.Vector)

	// At returns the point at the given index.
	At(i int) r3.Vector

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	// numBatches lets you divide up the work. 0 means don't divide.
	// myBatch is used iff numBatches > 0 and is which batch you want.
	Iterate(numBatches, myBatch int, fn func(p r3.Vector) bool)
}

// NewMetaData returns a new MetaData.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}

	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
}

// Center returns the centroid of all points merged so far.
func (meta *MetaData) Center(size int) r3.Vector {
	if size == 0 {
		return r3.Vector{}
	}
	n := float64(size)
	return r3.Vector{X: meta.totalX / n, Y: meta.totalY / n, Z: meta.totalZ / n}
}
