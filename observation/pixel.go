// Package observation predicts depth camera observations of rigid bodies. A depth map rendered
// for the pose hypothesis is corrupted per pixel by Gaussian noise whose scale grows with the
// pixel's occlusion belief.
package observation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/models"
	"go.viam.com/posetracking/utils"
)

var (
	_ models.ObservationModel[mat.Vector, *mat.VecDense] = (*PixelModel)(nil)
	_ models.ObservationModel[mat.Vector, *mat.VecDense] = (*FactorizedModel)(nil)
)

// PixelModel observes one pixel whose state is [depth, occlusion logit]. The observation is
// [y, y*y] with y = depth + exp(logit)*sigma*n.
type PixelModel struct {
	sigma float64
}

// NewPixelModel returns a pixel model with noise scale sigma.
func NewPixelModel(sigma float64) (*PixelModel, error) {
	if !utils.IsFinite(sigma) || sigma < 0 {
		return nil, utils.NewInvalidArgumentError("pixel sigma must be finite and non-negative, got %v", sigma)
	}
	return &PixelModel{sigma: sigma}, nil
}

// Sigma returns the noise scale of a pixel with occlusion logit 0.
func (m *PixelModel) Sigma() float64 {
	return m.sigma
}

// ObservationDimension is 2.
func (m *PixelModel) ObservationDimension() int { return 2 }

// StateDimension is 2.
func (m *PixelModel) StateDimension() int { return 2 }

// NoiseDimension is 1.
func (m *PixelModel) NoiseDimension() int { return 1 }

// Predict returns both observation channels for one pixel.
func (m *PixelModel) Predict(depth, logit, noise float64) (float64, float64) {
	y := depth + math.Exp(logit)*m.sigma*noise
	return y, y * y
}

// PredictObservation implements models.ObservationModel. The pixel model has no dynamics, so dt
// is ignored.
func (m *PixelModel) PredictObservation(state, noise mat.Vector, _ float64) (*mat.VecDense, error) {
	if state.Len() != 2 {
		return nil, utils.NewDimensionMismatchError("pixel state", 2, state.Len())
	}
	if noise.Len() != 1 {
		return nil, utils.NewDimensionMismatchError("pixel noise", 1, noise.Len())
	}
	y, y2 := m.Predict(state.AtVec(0), state.AtVec(1), noise.AtVec(0))
	return mat.NewVecDense(2, []float64{y, y2}), nil
}

// FactorizedModel observes a number of independent pixels that share one PixelModel. States and
// observations are interleaved per pixel.
type FactorizedModel struct {
	pixel *PixelModel
	count int
}

// NewFactorizedModel returns a model of count copies of pixel.
func NewFactorizedModel(pixel *PixelModel, count int) (*FactorizedModel, error) {
	if count <= 0 {
		return nil, utils.NewInvalidArgumentError("pixel count must be positive, got %d", count)
	}
	return &FactorizedModel{pixel: pixel, count: count}, nil
}

// PixelCount returns the number of pixels.
func (m *FactorizedModel) PixelCount() int { return m.count }

// ObservationDimension is twice the pixel count.
func (m *FactorizedModel) ObservationDimension() int { return 2 * m.count }

// StateDimension is twice the pixel count.
func (m *FactorizedModel) StateDimension() int { return 2 * m.count }

// NoiseDimension is the pixel count.
func (m *FactorizedModel) NoiseDimension() int { return m.count }

// PredictObservation applies the pixel model to every pixel.
func (m *FactorizedModel) PredictObservation(state, noise mat.Vector, _ float64) (*mat.VecDense, error) {
	if state.Len() != m.StateDimension() {
		return nil, utils.NewDimensionMismatchError("factorized state", m.StateDimension(), state.Len())
	}
	if noise.Len() != m.NoiseDimension() {
		return nil, utils.NewDimensionMismatchError("factorized noise", m.NoiseDimension(), noise.Len())
	}
	out := make([]float64, 2*m.count)
	for i := 0; i < m.count; i++ {
		out[2*i], out[2*i+1] = m.pixel.Predict(state.AtVec(2*i), state.AtVec(2*i+1), noise.AtVec(i))
	}
	return mat.NewVecDense(len(out), out), nil
}
