// Package config defines the structures to configure the tracking models and the camera they
// observe through.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/observation"
	"go.viam.com/posetracking/process/brownian"
	"go.viam.com/posetracking/process/occlusion"
	"go.viam.com/posetracking/render"
	"go.viam.com/posetracking/rigidbody"
	"go.viam.com/posetracking/utils"
)

// Config describes a scene of rigid bodies, how they move and how a depth camera sees them.
type Config struct {
	ConfigFilePath string `json:"-"`

	Motion     brownian.Config                 `json:"motion"`
	Occlusion  occlusion.Config                `json:"occlusion"`
	Depth      observation.Config              `json:"depth"`
	Camera     *render.PinholeCameraIntrinsics `json:"camera"`
	Shapes     []render.ShapeConfig            `json:"shapes"`
	Simulation Simulation                      `json:"simulation"`
}

// Simulation configures the simulate command.
type Simulation struct {
	Steps     int     `json:"steps"`
	DeltaTime float64 `json:"delta_time_sec"`
	Seed      uint64  `json:"seed"`
	// InitialPoses holds six values per body: position and rotation vector.
	InitialPoses [][]float64 `json:"initial_poses"`
}

// Validate ensures all parts of the config are valid.
func (s *Simulation) Validate(path string, bodies int) error {
	var errs error
	if s.Steps < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("steps must be non-negative, got %d", s.Steps)))
	}
	if s.DeltaTime <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "delta_time_sec"))
	}
	if s.InitialPoses != nil && len(s.InitialPoses) != bodies {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("initial_poses has %d entries for %d bodies", len(s.InitialPoses), bodies)))
	}
	for i, pose := range s.InitialPoses {
		if len(pose) != rigidbody.PoseDimension {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.initial_poses.%d", path, i),
				errors.Errorf("pose must have %d entries, got %d", rigidbody.PoseDimension, len(pose))))
		}
	}
	return errs
}

// Ensure validates every section and checks that they describe the same bodies.
func (c *Config) Ensure() error {
	errs := multierr.Combine(
		c.Motion.Validate("motion"),
		c.Occlusion.Validate("occlusion"),
		c.Depth.Validate("depth"),
	)
	if c.Camera == nil {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", "camera"))
	} else if err := c.Camera.CheckValid(); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError("camera", err))
	}
	if len(c.Shapes) == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", "shapes"))
	}
	for idx := range c.Shapes {
		errs = multierr.Append(errs, c.Shapes[idx].Validate(fmt.Sprintf("%s.%d", "shapes", idx)))
	}
	if len(c.Shapes) != len(c.Motion.Objects) {
		errs = multierr.Append(errs, errors.Errorf("%d shapes configured for %d moving objects",
			len(c.Shapes), len(c.Motion.Objects)))
	}
	if c.Depth.PoseDimension != 0 && c.Depth.PoseDimension != rigidbody.PoseDimension*len(c.Shapes) {
		errs = multierr.Append(errs, utils.NewConfigValidationError("depth",
			errors.Errorf("pose_dimension %d does not match %d shapes", c.Depth.PoseDimension, len(c.Shapes))))
	}
	return multierr.Append(errs, c.Simulation.Validate("simulation", len(c.Shapes)))
}

// BodyCount returns the number of configured bodies.
func (c *Config) BodyCount() int {
	return len(c.Shapes)
}

// DepthConfig returns the depth model config with the pose dimension covering all bodies.
func (c *Config) DepthConfig() observation.Config {
	cfg := c.Depth
	if cfg.PoseDimension == 0 {
		cfg.PoseDimension = rigidbody.PoseDimension * c.BodyCount()
	}
	return cfg
}

// NewRenderer builds a ray caster for the configured camera and shapes.
func (c *Config) NewRenderer() (*render.RayCaster, error) {
	shapes := make([]render.Shape, 0, len(c.Shapes))
	for i, sc := range c.Shapes {
		s, err := render.NewShape(sc)
		if err != nil {
			return nil, errors.Wrapf(err, "shape %d", i)
		}
		shapes = append(shapes, s)
	}
	return render.NewRayCaster(c.Camera, shapes)
}

// NewDepthModel builds the depth observation model observing through the configured camera.
func (c *Config) NewDepthModel(logger logging.Logger) (*observation.DepthModel, error) {
	renderer, err := c.NewRenderer()
	if err != nil {
		return nil, err
	}
	return observation.NewDepthModel(renderer, c.DepthConfig(), logger)
}

// InitialState returns the state the simulation starts from: the configured poses at rest, or
// all bodies at the origin when none are configured.
func (c *Config) InitialState() (*rigidbody.State, error) {
	if c.Simulation.InitialPoses == nil {
		return rigidbody.NewState(c.BodyCount())
	}
	poses := lo.Flatten(c.Simulation.InitialPoses)
	data := make([]float64, 0, rigidbody.DimensionPerBody*c.BodyCount())
	for _, pose := range lo.Chunk(poses, rigidbody.PoseDimension) {
		data = append(data, pose...)
		data = append(data, make([]float64, rigidbody.DimensionPerBody-rigidbody.PoseDimension)...)
	}
	return rigidbody.NewStateFromVector(mat.NewVecDense(len(data), data))
}
