package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Mask is a 2D boolean grid marking pixels that belong to the content of
// interest. It is produced by an external segmentation step; this package
// only carries it.
type Mask struct {
	width  int
	height int

	data []bool
}

// NewEmptyMask returns an all-false mask of the given dimensions.
func NewEmptyMask(width, height int) *Mask {
	return &Mask{
		width:  width,
		height: height,
		data:   make([]bool, width*height),
	}
}

// NewMaskFromImage converts an image into a mask. A pixel is part of the mask
// if its gray value is above half intensity, which matches the binary mask
// images the segmentation step emits.
func NewMaskFromImage(img image.Image) *Mask {
	bounds := img.Bounds()
	m := NewEmptyMask(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			m.Set(x-bounds.Min.X, y-bounds.Min.Y, g.Y > (1<<15))
		}
	}
	return m
}

// Width returns the width of the mask.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the height of the mask.
func (m *Mask) Height() int {
	return m.height
}

// Get returns whether the pixel at the given coordinates is set. It is unchecked.
func (m *Mask) Get(x, y int) bool {
	return m.data[(y*m.width)+x]
}

// Set sets the pixel at the given coordinates.
func (m *Mask) Set(x, y int, v bool) {
	m.data[(y*m.width)+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// PixelCoords returns the image coordinates of all set pixels, row major.
func (m *Mask) PixelCoords() []image.Point {
	pts := make([]image.Point, 0, m.Count())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.Get(x, y) {
				pts = append(pts, image.Point{x, y})
			}
		}
	}
	return pts
}

// CheckAgainst validates that the mask and depth map dimensions agree.
func (m *Mask) CheckAgainst(dm *DepthMap) error {
	if m.width != dm.Width() || m.height != dm.Height() {
		return errors.Errorf("mask dimensions and depth map don't match Mask(%d,%d) != Depth(%d,%d)",
			m.width, m.height, dm.Width(), dm.Height())
	}
	return nil
}
