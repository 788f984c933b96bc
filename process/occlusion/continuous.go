package occlusion

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/distributions"
	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/models"
	"go.viam.com/posetracking/utils"
)

var (
	_ models.ProcessModel[float64, models.NoInput] = (*ContinuousModel)(nil)
	_ models.StandardNormalMapping[float64]        = (*ContinuousModel)(nil)
)

// ContinuousModel diffuses an occlusion logit: the occlusion probability is propagated through
// a TransitionModel and then perturbed by a Gaussian of standard deviation sigma*sqrt(dt)
// truncated to [0, 1]. The model keeps scratch state between Condition and MapStandardNormal
// and must not be shared between goroutines.
type ContinuousModel struct {
	logger      logging.Logger
	transition  *TransitionModel
	sigma       float64
	truncated   *distributions.TruncatedGaussian
	conditioned bool
}

// NewContinuousModel returns a model with the given one-step transition probabilities and
// diffusion scale.
func NewContinuousModel(pOccludedGivenVisible, pOccludedGivenOccluded, sigma float64, logger logging.Logger) (*ContinuousModel, error) {
	transition, err := NewTransitionModel(pOccludedGivenVisible, pOccludedGivenOccluded)
	if err != nil {
		return nil, err
	}
	if !utils.IsFinite(sigma) || sigma < 0 {
		return nil, utils.NewInvalidArgumentError("occlusion sigma must be finite and non-negative, got %v", sigma)
	}
	return &ContinuousModel{
		logger:     logger,
		transition: transition,
		sigma:      sigma,
		truncated:  distributions.NewTruncatedGaussian(),
	}, nil
}

// StateDimension is 1.
func (m *ContinuousModel) StateDimension() int { return 1 }

// NoiseDimension is 1.
func (m *ContinuousModel) NoiseDimension() int { return 1 }

// StandardVariateDimension is 1.
func (m *ContinuousModel) StandardVariateDimension() int { return 1 }

// InputDimension is 0.
func (m *ContinuousModel) InputDimension() int { return 0 }

// Condition sets up the step of dt starting from the occlusion logit.
func (m *ContinuousModel) Condition(dt, logit float64, _ models.NoInput) error {
	m.conditioned = false
	if !utils.IsFinite(logit) {
		m.logger.Warnw("received non-finite occlusion", "logit", logit)
		return utils.NewNumericDivergenceError("occlusion logit %v", logit)
	}
	if err := m.transition.Condition(dt, utils.Logistic(logit)); err != nil {
		return err
	}
	mean, err := m.transition.Sample()
	if err != nil {
		m.logger.Warnw("produced invalid occlusion mean", "dt", dt, "logit", logit, "mean", mean)
		return err
	}
	if err := m.truncated.SetParameters(mean, m.sigma*math.Sqrt(dt), 0, 1); err != nil {
		return err
	}
	m.conditioned = true
	return nil
}

// Sample maps the scalar standard normal variate z onto the next occlusion logit.
func (m *ContinuousModel) Sample(z float64) (float64, error) {
	if !m.conditioned {
		return 0, utils.NewInvalidArgumentError("occlusion model sampled before it was conditioned")
	}
	logit := utils.Logit(m.truncated.MapStandardNormalInterior(z))
	if !utils.IsFinite(logit) {
		m.logger.Warnw("produced non-finite occlusion", "z", z, "mean", m.truncated.Mean(), "sigma", m.truncated.Sigma())
		return 0, utils.NewNumericDivergenceError("occlusion logit %v from variate %v", logit, z)
	}
	return logit, nil
}

// MapStandardNormal is Sample for a one dimensional variate.
func (m *ContinuousModel) MapStandardNormal(noise mat.Vector) (float64, error) {
	if noise.Len() != 1 {
		return 0, utils.NewDimensionMismatchError("occlusion noise", 1, noise.Len())
	}
	return m.Sample(noise.AtVec(0))
}

// PredictState conditions on the logit and maps the noise in one call.
func (m *ContinuousModel) PredictState(dt, logit float64, noise mat.Vector, input models.NoInput) (float64, error) {
	if noise.Len() != 1 {
		return 0, utils.NewDimensionMismatchError("occlusion noise", 1, noise.Len())
	}
	if err := m.Condition(dt, logit, input); err != nil {
		return 0, err
	}
	return m.Sample(noise.AtVec(0))
}

// PredictStates advances every logit by dt with its own variate. On error nothing is returned
// and the index of the offending pixel is part of the message.
func (m *ContinuousModel) PredictStates(dt float64, logits, noise []float64) ([]float64, error) {
	if len(noise) != len(logits) {
		return nil, utils.NewDimensionMismatchError("occlusion noise", len(logits), len(noise))
	}
	out := make([]float64, len(logits))
	for i, logit := range logits {
		if err := m.Condition(dt, logit, models.NoInput{}); err != nil {
			return nil, errors.Wrapf(err, "pixel %d", i)
		}
		next, err := m.Sample(noise[i])
		if err != nil {
			return nil, errors.Wrapf(err, "pixel %d", i)
		}
		out[i] = next
	}
	return out, nil
}
