// Package refmodel holds the pre-scanned reference model of the container
// being measured: its mesh, its known physical size, and a cached dense
// surface sample. A model is loaded once per pipeline and shared read-only
// across concurrent invocations.
package refmodel

import (
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/SoyaOda/foodscan/pointcloud"
	"github.com/SoyaOda/foodscan/spatialmath"
)

// SampleSize is how many surface points are drawn from the mesh for
// registration.
const SampleSize = 10000

// Model is an immutable reference container model.
type Model struct {
	mesh           *spatialmath.Mesh
	realDiameterMm float64
	warnings       []string

	sampleOnce sync.Once
	sample     pointcloud.PointCloud
}

// New creates a Model from a mesh and its known real rim diameter.
func New(mesh *spatialmath.Mesh, realDiameterMm float64) (*Model, error) {
	if mesh == nil || len(mesh.Vertices()) == 0 {
		return nil, errors.New("reference model has no vertices")
	}
	if realDiameterMm <= 0 {
		return nil, errors.Errorf("reference model real diameter must be positive, got %f", realDiameterMm)
	}
	return &Model{
		mesh:           mesh,
		realDiameterMm: realDiameterMm,
		warnings:       mesh.Validate(),
	}, nil
}

// LoadFromFile reads a PLY mesh and wraps it as a Model. Mesh quality issues
// are logged as warnings but do not fail the load.
func LoadFromFile(fn string, realDiameterMm float64, logger golog.Logger) (*Model, error) {
	mesh, err := spatialmath.ReadPLYFile(fn)
	if err != nil {
		return nil, err
	}
	model, err := New(mesh, realDiameterMm)
	if err != nil {
		return nil, err
	}
	for _, w := range model.warnings {
		logger.Warnw("reference model quality issue", "warning", w, "file", fn)
	}
	return model, nil
}

// Mesh returns the reference mesh.
func (m *Model) Mesh() *spatialmath.Mesh {
	return m.mesh
}

// RealDiameterMm returns the container's known physical rim diameter.
func (m *Model) RealDiameterMm() float64 {
	return m.realDiameterMm
}

// Warnings returns mesh quality warnings detected at load time.
func (m *Model) Warnings() []string {
	return m.warnings
}

// SamplePoints returns a dense point sample of the mesh surface. The sample
// is computed once and shared; it must be treated as read-only.
func (m *Model) SamplePoints() pointcloud.PointCloud {
	m.sampleOnce.Do(func() {
		m.sample = pointcloud.NewFromVectors(m.mesh.SamplePoints(SampleSize))
	})
	return m.sample
}
