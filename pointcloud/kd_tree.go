package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is a k-d tree over the points of a cloud for nearest neighbor
// queries. It is read-only after construction and safe for concurrent use.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

type treePoint struct {
	pos r3.Vector
	idx int
}

func (p treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(treePoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	default:
		return p.pos.Z - q.pos.Z
	}
}

func (p treePoint) Dims() int { return 3 }

func (p treePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(treePoint)
	return p.pos.Sub(q.pos).Norm2()
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p treePoints) Len() int                      { return len(p) }
func (p treePoints) Pivot(d kdtree.Dim) int {
	return plane{Dim: d, treePoints: p}.Pivot()
}

func (p treePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	treePoints
}

func (p plane) Less(i, j int) bool {
	return p.treePoints[i].Compare(p.treePoints[j], p.Dim) < 0
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.treePoints = p.treePoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.treePoints[i], p.treePoints[j] = p.treePoints[j], p.treePoints[i]
}

// ToKDTree creates a KDTree from a point cloud.
func ToKDTree(cloud PointCloud) *KDTree {
	pts := make(treePoints, 0, cloud.Size())
	i := 0
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		pts = append(pts, treePoint{pos: p, idx: i})
		i++
		return true
	})
	return &KDTree{
		tree: kdtree.New(pts, false),
		size: len(pts),
	}
}

// Size returns the number of points in the tree.
func (t *KDTree) Size() int {
	return t.size
}

// Nearest returns the closest point in the tree to the query, its index in
// the source cloud's iteration order, and the euclidean distance to it.
func (t *KDTree) Nearest(p r3.Vector) (r3.Vector, int, float64, bool) {
	if t.size == 0 {
		return r3.Vector{}, 0, 0, false
	}
	got, dist2 := t.tree.Nearest(treePoint{pos: p})
	if got == nil {
		return r3.Vector{}, 0, 0, false
	}
	tp := got.(treePoint)
	return tp.pos, tp.idx, math.Sqrt(dist2), true
}

// KNearest returns up to k closest points to the query and their indices in
// the source cloud's iteration order.
func (t *KDTree) KNearest(p r3.Vector, k int) ([]r3.Vector, []int) {
	if t.size == 0 || k <= 0 {
		return nil, nil
	}
	keep := kdtree.NewNKeeper(k)
	t.tree.NearestSet(keep, treePoint{pos: p})

	pts := make([]r3.Vector, 0, k)
	idxs := make([]int, 0, k)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		tp := c.Comparable.(treePoint)
		pts = append(pts, tp.pos)
		idxs = append(idxs, tp.idx)
	}
	return pts, idxs
}
