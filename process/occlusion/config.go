package occlusion

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/utils"
)

// Config configures a ContinuousModel and the belief every pixel starts from.
type Config struct {
	POccludedGivenVisible       float64 `json:"p_occluded_visible"`
	POccludedGivenOccluded      float64 `json:"p_occluded_occluded"`
	Sigma                       float64 `json:"sigma"`
	InitialOcclusionProbability float64 `json:"initial_occlusion_probability"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	for name, p := range map[string]float64{
		"p_occluded_visible":            cfg.POccludedGivenVisible,
		"p_occluded_occluded":           cfg.POccludedGivenOccluded,
		"initial_occlusion_probability": cfg.InitialOcclusionProbability,
	} {
		if !isProbability(p) {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path,
				errors.Errorf("%s must lie in [0, 1], got %v", name, p)))
		}
	}
	if cfg.POccludedGivenOccluded <= cfg.POccludedGivenVisible {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("p_occluded_occluded must exceed p_occluded_visible")))
	}
	if cfg.InitialOcclusionProbability == 0 || cfg.InitialOcclusionProbability == 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("initial_occlusion_probability must be strictly between 0 and 1")))
	}
	if cfg.Sigma < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("sigma must be non-negative, got %v", cfg.Sigma)))
	}
	return errs
}

// InitialLogit is the logit of the initial occlusion probability.
func (cfg *Config) InitialLogit() float64 {
	return utils.Logit(cfg.InitialOcclusionProbability)
}

// NewModel builds the configured ContinuousModel.
func (cfg *Config) NewModel(logger logging.Logger) (*ContinuousModel, error) {
	if err := cfg.Validate("occlusion"); err != nil {
		return nil, err
	}
	return NewContinuousModel(cfg.POccludedGivenVisible, cfg.POccludedGivenOccluded, cfg.Sigma, logger)
}
