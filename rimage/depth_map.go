// Package rimage defines the depth frame and mask types consumed by the
// scanning pipeline. Depth frames are captured externally and are immutable
// once parsed.
package rimage

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// MaxDepth is the largest depth value a sample can hold.
const MaxDepth = Depth(^uint16(0))

// Depth is a single depth sample. The physical meaning of one unit is set by
// the capture pipeline's units-per-meter constant; zero means no return.
type Depth uint16

// DepthMap is a 2D grid of depth samples.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns an unset depth map of the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// HasData returns whether the depth map has been initialized with samples.
func (dm *DepthMap) HasData() bool {
	return dm.width > 0 && dm.data != nil
}

// Width returns the width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle of valid coordinates.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// GetDepth returns the depth at the given coordinates. It is unchecked.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Get returns the depth at a given image.Point.
func (dm *DepthMap) Get(p image.Point) Depth {
	return dm.data[dm.kxy(p.X, p.Y)]
}

// Set sets the depth at the given coordinates.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// Contains returns whether the given coordinates are within the map bounds.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// MinMax returns the smallest non-zero and largest depth values in the map.
// If the map holds no returns at all, both values are zero.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	min, max := MaxDepth, Depth(0)
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	if max == 0 {
		return 0, 0
	}
	return min, max
}

// depth maps are stored gzip'd, little endian: two uint64 dimensions followed
// by one uint16 per sample, row major.

// ReadDepthMap parses a depth map from the given reader.
func ReadDepthMap(r io.Reader) (*DepthMap, error) {
	br := bufio.NewReader(r)
	var header [16]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, errors.Wrap(err, "error reading depth map header")
	}
	width := int(binary.LittleEndian.Uint64(header[:8]))
	height := int(binary.LittleEndian.Uint64(header[8:]))
	if width <= 0 || height <= 0 || width*height > (1<<26) {
		return nil, errors.Errorf("bad depth map dimensions %dx%d", width, height)
	}

	dm := NewEmptyDepthMap(width, height)
	buf := make([]byte, width*2)
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, errors.Wrapf(err, "error reading depth map row %d", y)
		}
		for x := 0; x < width; x++ {
			dm.data[dm.kxy(x, y)] = Depth(binary.LittleEndian.Uint16(buf[x*2:]))
		}
	}
	return dm, nil
}

// WriteDepthMap writes the depth map to the given writer.
func WriteDepthMap(dm *DepthMap, w io.Writer) error {
	var header [16]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(dm.width))
	binary.LittleEndian.PutUint64(header[8:], uint64(dm.height))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	buf := make([]byte, dm.width*2)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			binary.LittleEndian.PutUint16(buf[x*2:], uint16(dm.GetDepth(x, y)))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// NewDepthMapFromFile reads a gzip'd depth map file.
func NewDepthMapFromFile(fn string) (*DepthMap, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening depth map %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error decompressing depth map %q", fn)
	}
	defer utils.UncheckedErrorFunc(gz.Close)

	return ReadDepthMap(gz)
}

// WriteDepthMapToFile writes a gzip'd depth map file.
func WriteDepthMapToFile(dm *DepthMap, fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	gz := gzip.NewWriter(f)
	if err := WriteDepthMap(dm, gz); err != nil {
		return multierr.Combine(err, gz.Close())
	}
	return gz.Close()
}
