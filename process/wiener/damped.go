// Package wiener implements damped and integrated damped Wiener processes, the stochastic
// integrators underlying the rigid body motion model.
package wiener

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/distributions"
	"go.viam.com/posetracking/utils"
)

// DampedProcess is an Ornstein-Uhlenbeck velocity process dv = (u - c v) dt + dW with
// Cov(dW) = Sigma dt, where c is the damping and u the input acceleration.
type DampedProcess struct {
	dimension  int
	damping    float64
	covariance *mat.SymDense

	density *distributions.Gaussian
}

// NewDampedProcess returns an undamped process with zero covariance.
func NewDampedProcess(dimension int) (*DampedProcess, error) {
	density, err := distributions.NewGaussian(dimension)
	if err != nil {
		return nil, err
	}
	return &DampedProcess{
		dimension:  dimension,
		covariance: mat.NewSymDense(dimension, nil),
		density:    density,
	}, nil
}

// Dimension returns the dimension of the velocity.
func (p *DampedProcess) Dimension() int {
	return p.dimension
}

// SetParameters sets the damping coefficient and the acceleration covariance.
func (p *DampedProcess) SetParameters(damping float64, covariance mat.Matrix) error {
	if !utils.IsFinite(damping) || damping < 0 {
		return utils.NewInvalidArgumentError("damping must be finite and non-negative, got %v", damping)
	}
	cov, err := distributions.ToSymmetric(covariance, p.dimension)
	if err != nil {
		return err
	}
	p.damping = damping
	p.covariance = cov
	return nil
}

// Damping returns the damping coefficient.
func (p *DampedProcess) Damping() float64 {
	return p.damping
}

// Condition sets the distribution of the velocity after dt given the current velocity and input.
func (p *DampedProcess) Condition(dt float64, velocity, input mat.Vector) error {
	if err := checkConditionArgs(dt, p.dimension, velocity, input); err != nil {
		return err
	}
	mean := mat.NewVecDense(p.dimension, nil)
	decay, gain := p.meanFactors(dt)
	mean.ScaleVec(decay, velocity)
	mean.AddScaledVec(mean, gain, input)

	cov := mat.NewSymDense(p.dimension, nil)
	cov.ScaleSym(p.varianceFactor(dt), p.covariance)

	if err := p.density.SetMean(mean); err != nil {
		return err
	}
	return p.density.SetCovariance(cov)
}

// MapStandardNormal maps a standard normal variate onto a velocity sample.
func (p *DampedProcess) MapStandardNormal(noise mat.Vector) (*mat.VecDense, error) {
	return p.density.MapStandardNormal(noise)
}

// meanFactors returns the factors of the current velocity and of the input in the mean velocity.
func (p *DampedProcess) meanFactors(dt float64) (float64, float64) {
	if p.damping == 0 {
		return 1, dt
	}
	decay := math.Exp(-p.damping * dt)
	return decay, (1 - decay) / p.damping
}

func (p *DampedProcess) varianceFactor(dt float64) float64 {
	if p.damping == 0 {
		return dt
	}
	return -math.Expm1(-2*p.damping*dt) / (2 * p.damping)
}

func checkConditionArgs(dt float64, dimension int, vectors ...mat.Vector) error {
	if !utils.IsFinite(dt) || dt < 0 {
		return utils.NewInvalidArgumentError("elapsed time must be finite and non-negative, got %v", dt)
	}
	for _, v := range vectors {
		if v.Len() != dimension {
			return utils.NewDimensionMismatchError("process argument", dimension, v.Len())
		}
	}
	return nil
}
