package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestWriteToLASFile(t *testing.T) {
	cloud := New()
	cloud.Add(NewVector(-1, -2, 5))
	cloud.Add(NewVector(582, 12, 0))
	cloud.Add(NewVector(7, 6, 1))

	fn := filepath.Join(t.TempDir(), "cloud.las")
	err := WriteToLASFile(cloud, fn)
	test.That(t, err, test.ShouldBeNil)

	info, err := os.Stat(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestToPCDAscii(t *testing.T) {
	cloud := New()
	cloud.Add(NewVector(-1000, -2000, 5000))
	cloud.Add(NewVector(582, 12, 0))

	var buf bytes.Buffer
	err := ToPCD(cloud, &buf, PCDAscii)
	test.That(t, err, test.ShouldBeNil)

	out := buf.String()
	test.That(t, out, test.ShouldContainSubstring, "VERSION .7")
	test.That(t, out, test.ShouldContainSubstring, "FIELDS x y z")
	test.That(t, out, test.ShouldContainSubstring, "POINTS 2")
	test.That(t, out, test.ShouldContainSubstring, "DATA ascii")
	// positions are emitted in meters
	test.That(t, out, test.ShouldContainSubstring, "-1.000000")
	test.That(t, strings.Count(strings.TrimSpace(out), "\n"), test.ShouldBeGreaterThan, 9)
}

func TestToPCDBinary(t *testing.T) {
	cloud := New()
	cloud.Add(NewVector(1, 2, 3))

	var buf bytes.Buffer
	err := ToPCD(cloud, &buf, PCDBinary)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "DATA binary")
	// header plus one 12-byte point record
	headerEnd := strings.Index(buf.String(), "DATA binary\n") + len("DATA binary\n")
	test.That(t, buf.Len()-headerEnd, test.ShouldEqual, 12)
}
