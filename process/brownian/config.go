package brownian

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/utils"
)

// ObjectConfig is the serialized form of ObjectParameters. A covariance is given either as its
// three diagonal entries or as nine row-major entries.
type ObjectConfig struct {
	RotationCenter                []float64 `json:"rotation_center,omitempty"`
	Damping                       float64   `json:"damping"`
	LinearAccelerationCovariance  []float64 `json:"linear_acceleration_covariance"`
	AngularAccelerationCovariance []float64 `json:"angular_acceleration_covariance"`
}

// Config configures a MotionModel with one entry per body.
type Config struct {
	Objects []ObjectConfig `json:"objects"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if len(cfg.Objects) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "objects")
	}
	var errs error
	for i, obj := range cfg.Objects {
		errs = multierr.Append(errs, obj.Validate(fmt.Sprintf("%s.objects.%d", path, i)))
	}
	return errs
}

// Validate ensures all parts of the config are valid.
func (cfg *ObjectConfig) Validate(path string) error {
	var errs error
	if cfg.Damping < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("damping must be non-negative, got %v", cfg.Damping)))
	}
	if cfg.RotationCenter != nil && len(cfg.RotationCenter) != 3 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("rotation_center must have 3 entries, got %d", len(cfg.RotationCenter))))
	}
	for name, cov := range map[string][]float64{
		"linear_acceleration_covariance":  cfg.LinearAccelerationCovariance,
		"angular_acceleration_covariance": cfg.AngularAccelerationCovariance,
	} {
		switch len(cov) {
		case 0:
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, name))
		case 3, 9:
		default:
			errs = multierr.Append(errs, utils.NewConfigValidationError(path,
				errors.Errorf("%s must have 3 or 9 entries, got %d", name, len(cov))))
		}
	}
	return errs
}

// Parameters converts the config into model parameters.
func (cfg *ObjectConfig) Parameters() ObjectParameters {
	params := ObjectParameters{
		Damping:                       cfg.Damping,
		LinearAccelerationCovariance:  covarianceFromSlice(cfg.LinearAccelerationCovariance),
		AngularAccelerationCovariance: covarianceFromSlice(cfg.AngularAccelerationCovariance),
	}
	if len(cfg.RotationCenter) == 3 {
		params.RotationCenter = r3.Vector{X: cfg.RotationCenter[0], Y: cfg.RotationCenter[1], Z: cfg.RotationCenter[2]}
	}
	return params
}

// NewModel builds a MotionModel with one body per configured object.
func (cfg *Config) NewModel(logger logging.Logger) (*MotionModel, error) {
	if err := cfg.Validate("motion"); err != nil {
		return nil, err
	}
	m, err := NewMotionModel(len(cfg.Objects), logger)
	if err != nil {
		return nil, err
	}
	params := lo.Map(cfg.Objects, func(obj ObjectConfig, _ int) ObjectParameters {
		return obj.Parameters()
	})
	for i, p := range params {
		if err := m.SetParameters(i, p); err != nil {
			return nil, errors.Wrapf(err, "object %d", i)
		}
	}
	return m, nil
}

func covarianceFromSlice(values []float64) mat.Matrix {
	switch len(values) {
	case 3:
		return mat.NewDiagDense(3, append([]float64(nil), values...))
	case 9:
		return mat.NewDense(3, 3, append([]float64(nil), values...))
	default:
		return nil
	}
}
