package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Normals holds one surface normal per point, in the cloud's iteration order.
// Orientation is arbitrary; point-to-plane residuals are insensitive to sign.
type Normals []r3.Vector

// EstimateNormals estimates a surface normal for every point of the cloud as
// the smallest eigenvector of its k-neighborhood covariance.
func EstimateNormals(cloud PointCloud, tree *KDTree, k int) Normals {
	if k < 3 {
		k = 3
	}
	normals := make(Normals, 0, cloud.Size())
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		neighbors, _ := tree.KNearest(p, k)
		normals = append(normals, neighborhoodNormal(neighbors))
		return true
	})
	return normals
}

// neighborhoodNormal returns the direction of least variance of the given
// points, or the zero vector for degenerate neighborhoods.
func neighborhoodNormal(pts []r3.Vector) r3.Vector {
	if len(pts) < 3 {
		return r3.Vector{}
	}
	var center r3.Vector
	for _, p := range pts {
		center = center.Add(p)
	}
	center = center.Mul(1 / float64(len(pts)))

	var xx, xy, xz, yy, yz, zz float64
	for _, p := range pts {
		d := p.Sub(center)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}
	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var es mat.EigenSym
	if ok := es.Factorize(cov, true); !ok {
		return r3.Vector{}
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	// eigenvalues are in ascending order, so the first column is the
	// direction of least variance
	return r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}.Normalize()
}
