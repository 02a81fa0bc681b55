// foodscan estimates the volume of food in a known container from a single
// depth snapshot.
package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/SoyaOda/foodscan/align"
	"github.com/SoyaOda/foodscan/pointcloud"
	"github.com/SoyaOda/foodscan/refmodel"
	"github.com/SoyaOda/foodscan/rimage"
	"github.com/SoyaOda/foodscan/rimage/transform"
	"github.com/SoyaOda/foodscan/scanner"
	"github.com/SoyaOda/foodscan/volume"
)

var flags struct {
	depthPath      string
	maskPath       string
	modelPath      string
	diameterMm     float64
	intrinsicsPath string
	configPath     string
	method         string
	density        float64
	voxelSizeMm    float64
	dumpLAS        string
	dumpPCD        string
	debug          bool
}

func main() {
	cmd := &cobra.Command{
		Use:   "foodscan",
		Short: "Estimate food volume from a depth snapshot of a known container",
		Long: `foodscan aligns a container's reference model to a single depth
snapshot and integrates the volume of whatever sits inside it.`,
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().StringVar(&flags.depthPath, "depth", "", "depth map file (required)")
	cmd.Flags().StringVar(&flags.maskPath, "mask", "", "container mask PNG (required)")
	cmd.Flags().StringVar(&flags.modelPath, "model", "", "container reference model PLY (required)")
	cmd.Flags().Float64Var(&flags.diameterMm, "diameter", 0, "real container rim diameter in mm (required)")
	cmd.Flags().StringVar(&flags.intrinsicsPath, "intrinsics", "", "camera intrinsics JSON (required)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "pipeline config YAML")
	cmd.Flags().StringVar(&flags.method, "method", "", "volume method: voxel, mesh, heightfield-plane, heightfield-raycast")
	cmd.Flags().Float64Var(&flags.density, "density", 0, "food density in g/ml, to also report mass")
	cmd.Flags().Float64Var(&flags.voxelSizeMm, "voxel-size", 0, "voxel size in mm")
	cmd.Flags().StringVar(&flags.dumpLAS, "dump-las", "", "write the observed point cloud to a LAS file")
	cmd.Flags().StringVar(&flags.dumpPCD, "dump-pcd", "", "write the observed point cloud to a PCD file")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	for _, f := range []string{"depth", "mask", "model", "diameter", "intrinsics"} {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := golog.NewLogger("foodscan")
	if flags.debug {
		logger = golog.NewDebugLogger("foodscan")
	}

	cfg := scanner.DefaultConfig()
	if flags.configPath != "" {
		var err error
		if cfg, err = scanner.LoadConfig(flags.configPath); err != nil {
			return err
		}
	}
	if flags.method != "" {
		cfg.Method = volume.Method(flags.method)
	}
	if flags.density > 0 {
		cfg.DensityGPerMl = flags.density
	}
	if flags.voxelSizeMm > 0 {
		cfg.VoxelSizeMm = flags.voxelSizeMm
	}

	dm, err := rimage.NewDepthMapFromFile(flags.depthPath)
	if err != nil {
		return errors.Wrap(err, "loading depth map")
	}
	mask, err := loadMask(flags.maskPath)
	if err != nil {
		return errors.Wrap(err, "loading mask")
	}
	params, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(flags.intrinsicsPath)
	if err != nil {
		return errors.Wrap(err, "loading intrinsics")
	}
	model, err := refmodel.LoadFromFile(flags.modelPath, flags.diameterMm, logger)
	if err != nil {
		return errors.Wrap(err, "loading reference model")
	}

	s, err := scanner.New(model, params, cfg, logger)
	if err != nil {
		return err
	}

	if flags.dumpLAS != "" || flags.dumpPCD != "" {
		if err := dumpClouds(dm, mask, params, cfg, logger); err != nil {
			return err
		}
	}

	report, err := s.Estimate(dm, mask)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func loadMask(fn string) (*rimage.Mask, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	return rimage.NewMaskFromImage(img), nil
}

func dumpClouds(
	dm *rimage.DepthMap,
	mask *rimage.Mask,
	params *transform.PinholeCameraIntrinsics,
	cfg scanner.Config,
	logger golog.Logger,
) (err error) {
	cloud, err := transform.DepthMapToPointCloud(dm, mask, params, transform.DepthScale(cfg.UnitsPerMeter))
	if err != nil {
		return err
	}
	if flags.dumpLAS != "" {
		if err := pointcloud.WriteToLASFile(cloud, flags.dumpLAS); err != nil {
			return errors.Wrap(err, "writing LAS dump")
		}
		logger.Infow("wrote point cloud", "path", flags.dumpLAS, "points", cloud.Size())
	}
	if flags.dumpPCD != "" {
		//nolint:gosec
		f, errOpen := os.Create(flags.dumpPCD)
		if errOpen != nil {
			return errOpen
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		if err := pointcloud.ToPCD(cloud, f, pointcloud.PCDBinary); err != nil {
			return errors.Wrap(err, "writing PCD dump")
		}
		logger.Infow("wrote point cloud", "path", flags.dumpPCD, "points", cloud.Size())
	}
	return nil
}

func printReport(r *scanner.Report) {
	fmt.Printf("confidence: %s\n", r.Confidence)
	fmt.Printf("volume: %.1f ml (%s)\n", r.Volume.VolumeMl, r.Volume.Method)
	if r.HasMass {
		fmt.Printf("mass: %.1f g\n", r.MassG)
	}
	if r.Alignment != nil {
		printAlignment(r.Alignment)
	}
	if r.Volume.ValidCount > 0 {
		fmt.Printf("pixels: %d of %d contributed\n", r.Volume.ValidCount, r.Volume.TotalCount)
	}
	if r.Volume.Heights.MaxMm > 0 {
		h := r.Volume.Heights
		fmt.Printf("heights: mean %.1f mm, min %.1f mm, max %.1f mm, stddev %.1f mm\n",
			h.MeanMm, h.MinMm, h.MaxMm, h.StdDevMm)
	}
	for _, reason := range r.Reasons {
		fmt.Printf("note: %s\n", reason)
	}
}

func printAlignment(a *align.Result) {
	fmt.Printf("alignment: fitness %.3f, rmse %.2f mm, %d iterations", a.Fitness, a.RMSE, a.Iterations)
	if !a.Converged {
		fmt.Printf(" (did not converge)")
	}
	fmt.Println()
	fmt.Printf("scale: %.4f (measured rim %.1f mm)\n", a.ScaleFactor, a.MeasuredDiameterMm)
}
