package scanner

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/SoyaOda/foodscan/volume"
)

// Config holds the estimation pipeline's tuning knobs.
type Config struct {
	// Method selects the volume integration strategy.
	Method volume.Method `yaml:"method"`
	// VoxelSizeMm is the resolution for downsampling and voxel counting.
	VoxelSizeMm float64 `yaml:"voxel_size_mm"`
	// ICPMaxIterations bounds the alignment refinement loop.
	ICPMaxIterations int `yaml:"icp_max_iterations"`
	// UnitsPerMeter converts raw depth samples to meters.
	UnitsPerMeter float64 `yaml:"units_per_meter"`
	// DensityGPerMl, when positive, also reports an estimated mass.
	DensityGPerMl float64 `yaml:"density_g_per_ml"`
	// MinFitness is the alignment fitness below which results are
	// reported with low confidence.
	MinFitness float64 `yaml:"min_fitness"`
	// MinHitRate is the raycast hit fraction below which results are
	// reported with low confidence.
	MinHitRate float64 `yaml:"min_hit_rate"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Method:           volume.MethodHeightfieldRaycast,
		VoxelSizeMm:      2.0,
		ICPMaxIterations: 50,
		UnitsPerMeter:    10000,
		MinFitness:       0.1,
		MinHitRate:       0.5,
	}
}

// Validate checks the config for values the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Method {
	case volume.MethodVoxel, volume.MethodMesh, volume.MethodHeightfieldPlane, volume.MethodHeightfieldRaycast:
	default:
		return errors.Errorf("unknown volume method %q", c.Method)
	}
	if c.VoxelSizeMm <= 0 {
		return errors.New("voxel_size_mm must be positive")
	}
	if c.UnitsPerMeter <= 0 {
		return errors.New("units_per_meter must be positive")
	}
	if c.DensityGPerMl < 0 {
		return errors.New("density_g_per_ml cannot be negative")
	}
	return nil
}

// LoadConfig reads a YAML config file, filling unset fields from the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
