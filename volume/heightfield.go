package volume

import (
	"github.com/pkg/errors"

	"github.com/SoyaOda/foodscan/rimage"
	"github.com/SoyaOda/foodscan/rimage/transform"
)

// pixelAreaMm2 is the physical footprint of one pixel at the given depth
// under the pinhole model. Using the per-pixel depth keeps the integration
// perspective-correct: pixels imaging nearer material cover less area.
func pixelAreaMm2(depthMm, fx float64) float64 {
	side := depthMm / fx
	return side * side
}

// PlaneHeightField integrates per-pixel columns between the observed content
// depth and a flat reference plane at planeZMm, typically the container rim.
// Pixels with no depth return or with their content at or below the plane
// contribute nothing.
func PlaneHeightField(
	dm *rimage.DepthMap,
	mask *rimage.Mask,
	planeZMm float64,
	params *transform.PinholeCameraIntrinsics,
	depthScale, scaleFactor float64,
) (Result, error) {
	if err := mask.CheckAgainst(dm); err != nil {
		return Result{}, err
	}
	if err := params.CheckValid(); err != nil {
		return Result{}, err
	}

	pixels := mask.PixelCoords()
	s3 := scaleFactor * scaleFactor * scaleFactor
	totalMm3 := 0.0
	valid := 0
	heights := make([]float64, 0, len(pixels))

	for _, px := range pixels {
		d := dm.GetDepth(px.X, px.Y)
		if d == 0 {
			continue
		}
		contentMm := float64(d) * depthScale * 1000.0
		height := contentMm - planeZMm
		if height <= 0 {
			continue
		}
		totalMm3 += height * pixelAreaMm2(contentMm, params.Fx)
		heights = append(heights, height)
		valid++
	}

	if valid == 0 {
		return Result{Method: MethodEmpty, ScaleFactor: scaleFactor, TotalCount: len(pixels)}, nil
	}
	return Result{
		VolumeMl:    totalMm3 * s3 / 1000.0,
		Method:      MethodHeightfieldPlane,
		ScaleFactor: scaleFactor,
		TotalCount:  len(pixels),
		ValidCount:  valid,
		Heights:     heightStats(heights),
	}, nil
}

// RaycastHeightField integrates per-pixel columns between the observed
// content depth and the container surface depth recovered by raycasting.
// refDepthsMm and hits must be in the same order as mask.PixelCoords().
// Pixels whose ray missed the container, had no depth return, or whose
// content lies at or below the container surface contribute nothing.
func RaycastHeightField(
	dm *rimage.DepthMap,
	mask *rimage.Mask,
	refDepthsMm []float64,
	hits []bool,
	params *transform.PinholeCameraIntrinsics,
	depthScale, scaleFactor float64,
) (Result, error) {
	if err := mask.CheckAgainst(dm); err != nil {
		return Result{}, err
	}
	if err := params.CheckValid(); err != nil {
		return Result{}, err
	}
	pixels := mask.PixelCoords()
	if len(refDepthsMm) != len(pixels) || len(hits) != len(pixels) {
		return Result{}, errors.Errorf(
			"have %d reference depths and %d hit flags for %d mask pixels",
			len(refDepthsMm), len(hits), len(pixels))
	}

	s3 := scaleFactor * scaleFactor * scaleFactor
	totalMm3 := 0.0
	valid := 0
	heights := make([]float64, 0, len(pixels))

	for i, px := range pixels {
		if !hits[i] {
			continue
		}
		d := dm.GetDepth(px.X, px.Y)
		if d == 0 {
			continue
		}
		contentMm := float64(d) * depthScale * 1000.0
		height := refDepthsMm[i] - contentMm
		if height <= 0 {
			continue
		}
		totalMm3 += height * pixelAreaMm2(contentMm, params.Fx)
		heights = append(heights, height)
		valid++
	}

	if valid == 0 {
		return Result{Method: MethodEmpty, ScaleFactor: scaleFactor, TotalCount: len(pixels)}, nil
	}
	return Result{
		VolumeMl:    totalMm3 * s3 / 1000.0,
		Method:      MethodHeightfieldRaycast,
		ScaleFactor: scaleFactor,
		TotalCount:  len(pixels),
		ValidCount:  valid,
		Heights:     heightStats(heights),
	}, nil
}
