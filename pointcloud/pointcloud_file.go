package pointcloud

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// WriteToLASFile writes the point cloud out to a LAS file, for offline
// inspection of projected clouds in standard tooling.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: 0,
	}); err != nil {
		return
	}

	var lastErr error
	cloud.Iterate(0, 0, func(pos r3.Vector) bool {
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		if lerr := lf.AddLasPoint(pr0); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
		return
	}

	//nolint:nakedret
	return
}

// ToPCD writes the pointcloud as a .pcd, with positions in meters as the
// format expects.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(),
		1,
		cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
	case PCDAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
	default:
		err = fmt.Errorf("unsupported pcd type %d", outputType)
	}
	if err != nil {
		return err
	}

	var writeErr error
	cloud.Iterate(0, 0, func(pos r3.Vector) bool {
		x := pos.X / 1000.
		y := pos.Y / 1000.
		z := pos.Z / 1000.
		switch outputType {
		case PCDBinary:
			buf := make([]byte, 12)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(z)))
			_, writeErr = out.Write(buf)
		case PCDAscii:
			_, writeErr = fmt.Fprintf(out, "%f %f %f\n", x, y, z)
		}
		return writeErr == nil
	})
	return writeErr
}
