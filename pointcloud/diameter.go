package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rimBandQuantile is the fraction of a cloud's vertical extent that counts as
// the rim band. The band is taken at both ends of the vertical axis and the
// wider one wins, so the sign of the axis never matters.
const rimBandQuantile = 0.05

// verticalTieRatio is how close the two smallest principal variances must be
// before the axis choice is considered ambiguous and broken toward camera Z.
const verticalTieRatio = 0.05

// RimMeasurement is the result of measuring a container's opening on an
// observed point cloud.
type RimMeasurement struct {
	// DiameterMm is the planar diameter of the rim band, in the cloud's
	// own (possibly mis-scaled) millimeters. Zero means the cloud had no
	// measurable spread.
	DiameterMm float64
	// BandSize is how many points fell into the winning rim band.
	BandSize int
	// VerticalAxis is the axis the band was taken along.
	VerticalAxis r3.Vector
}

// MeasureRimDiameter measures the opening diameter of a container point
// cloud. Containers are usually not cylindrical, so the measurement is taken
// on the rim band, the extremal band along the cloud's minor principal axis,
// rather than on the overall extent: a band below the rim of a flared bowl
// under-estimates the true diameter.
//
// The vertical axis is the variance-minimizing principal axis; when the two
// smallest variances are within a few percent of each other the candidate
// most aligned with camera Z wins, since containers are scanned from above.
func MeasureRimDiameter(cloud PointCloud) RimMeasurement {
	n := cloud.Size()
	if n < 3 {
		return RimMeasurement{}
	}

	meta := cloud.MetaData()
	center := meta.Center(n)
	data := mat.NewDense(n, 3, nil)
	i := 0
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		d := p.Sub(center)
		data.Set(i, 0, d.X)
		data.Set(i, 1, d.Y)
		data.Set(i, 2, d.Z)
		i++
		return true
	})

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return RimMeasurement{}
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	axis := func(col int) r3.Vector {
		return r3.Vector{X: vecs.At(0, col), Y: vecs.At(1, col), Z: vecs.At(2, col)}
	}
	// variances come back in descending order, so column 2 is the minor axis
	verticalCol := 2
	if vars[1] > 0 && (vars[1]-vars[2])/vars[1] < verticalTieRatio {
		if math.Abs(axis(1).Z) > math.Abs(axis(2).Z) {
			verticalCol = 1
		}
	}
	vertical := axis(verticalCol)
	horiz1 := axis((verticalCol + 1) % 3)
	horiz2 := axis((verticalCol + 2) % 3)

	proj := make([]float64, n)
	for row := 0; row < n; row++ {
		proj[row] = data.At(row, 0)*vertical.X + data.At(row, 1)*vertical.Y + data.At(row, 2)*vertical.Z
	}
	sorted := append([]float64(nil), proj...)
	sort.Float64s(sorted)
	hi := stat.Quantile(1-rimBandQuantile, stat.Empirical, sorted, nil)
	lo := stat.Quantile(rimBandQuantile, stat.Empirical, sorted, nil)

	top := bandDiameter(data, proj, func(t float64) bool { return t >= hi }, horiz1, horiz2)
	bottom := bandDiameter(data, proj, func(t float64) bool { return t <= lo }, horiz1, horiz2)

	winner := top
	if bottom.DiameterMm > winner.DiameterMm {
		winner = bottom
	}
	winner.VerticalAxis = vertical
	return winner
}

// bandDiameter measures a band's planar diameter as twice the max distance
// from the band's planar centroid.
func bandDiameter(data *mat.Dense, proj []float64, inBand func(float64) bool, h1, h2 r3.Vector) RimMeasurement {
	type planar struct{ u, v float64 }
	band := make([]planar, 0, len(proj)/10)
	var sumU, sumV float64
	for row, t := range proj {
		if !inBand(t) {
			continue
		}
		d := r3.Vector{X: data.At(row, 0), Y: data.At(row, 1), Z: data.At(row, 2)}
		p := planar{u: d.Dot(h1), v: d.Dot(h2)}
		band = append(band, p)
		sumU += p.u
		sumV += p.v
	}
	if len(band) == 0 {
		return RimMeasurement{}
	}
	cu := sumU / float64(len(band))
	cv := sumV / float64(len(band))
	maxDist := 0.0
	for _, p := range band {
		if d := math.Hypot(p.u-cu, p.v-cv); d > maxDist {
			maxDist = d
		}
	}
	return RimMeasurement{DiameterMm: 2 * maxDist, BandSize: len(band)}
}
