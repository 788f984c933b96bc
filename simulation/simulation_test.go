package simulation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/posetracking/config"
	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/process/brownian"
	"go.viam.com/posetracking/process/occlusion"
	"go.viam.com/posetracking/render"
)

func testConfig() *config.Config {
	return &config.Config{
		Motion: brownian.Config{Objects: []brownian.ObjectConfig{{
			Damping:                       0.1,
			LinearAccelerationCovariance:  []float64{0.01, 0.01, 0.01},
			AngularAccelerationCovariance: []float64{1, 1, 1},
		}}},
		Occlusion: occlusion.Config{
			POccludedGivenVisible:       0.1,
			POccludedGivenOccluded:      0.7,
			Sigma:                       0.2,
			InitialOcclusionProbability: 0.2,
		},
		Camera: &render.PinholeCameraIntrinsics{Width: 8, Height: 6, Fx: 8, Fy: 8, Ppx: 4, Ppy: 3},
		Shapes: []render.ShapeConfig{{Type: "box", Attributes: render.AttributeMap{"dims": []float64{0.4, 0.4, 0.4}}}},
		Simulation: config.Simulation{
			Steps:        5,
			DeltaTime:    0.03,
			InitialPoses: [][]float64{{0, 0, 1.5, 0, 0, 0}},
		},
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig()
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	sim, err := New(cfg, 7, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sim.Logits()), test.ShouldEqual, 48)

	steps, err := sim.Run(context.Background(), cfg.Simulation.Steps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(steps), test.ShouldEqual, 5)
	for i, st := range steps {
		test.That(t, st.Step, test.ShouldEqual, i+1)
		test.That(t, st.Time, test.ShouldAlmostEqual, float64(i+1)*0.03)
		test.That(t, len(st.Poses), test.ShouldEqual, 6)
		test.That(t, st.OcclusionMean, test.ShouldBeGreaterThanOrEqualTo, 0.)
		test.That(t, st.OcclusionMean, test.ShouldBeLessThanOrEqualTo, 1.)
		// the box covers the middle of the image, the rest sees the missing depth sentinel
		test.That(t, st.DepthMedian, test.ShouldBeGreaterThan, 1.)
		test.That(t, st.DepthMean, test.ShouldBeLessThan, 7.5)
	}
	test.That(t, sim.State().Position(0).Z, test.ShouldAlmostEqual, 1.5, 0.1)
}

func TestRunIsSeeded(t *testing.T) {
	run := func(seed uint64) []StepStats {
		sim, err := New(testConfig(), seed, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		steps, err := sim.Run(context.Background(), 3)
		test.That(t, err, test.ShouldBeNil)
		return steps
	}
	a, b := run(1), run(1)
	test.That(t, a, test.ShouldResemble, b)
	c := run(2)
	test.That(t, c[2].Poses, test.ShouldNotResemble, a[2].Poses)
}

func TestRunStops(t *testing.T) {
	sim, err := New(testConfig(), 1, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps, err := sim.Run(ctx, 3)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, len(steps), test.ShouldEqual, 0)

	cfg := testConfig()
	cfg.Simulation.DeltaTime = 0
	_, err = New(cfg, 1, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSavePlot(t *testing.T) {
	sim, err := New(testConfig(), 1, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	steps, err := sim.Run(context.Background(), 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, steps[3].Renders, test.ShouldEqual, 4)

	path := filepath.Join(t.TempDir(), "stats.png")
	test.That(t, SavePlot(steps, path), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	test.That(t, SavePlot(nil, path), test.ShouldNotBeNil)
	test.That(t, SavePlot(steps, filepath.Join(t.TempDir(), "stats.unknown")), test.ShouldNotBeNil)
}
