package wiener

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/distributions"
	"go.viam.com/posetracking/utils"
)

// IntegratedProcess integrates a DampedProcess once more. Its state stacks a position-like part
// on top of the velocity; both parts are driven by the same standard normal variate, so the
// noise dimension is half the state dimension.
type IntegratedProcess struct {
	velocity *DampedProcess
	position *distributions.Gaussian
}

// NewIntegratedProcess returns a process whose position and velocity each have the given
// dimension.
func NewIntegratedProcess(dimension int) (*IntegratedProcess, error) {
	velocity, err := NewDampedProcess(dimension)
	if err != nil {
		return nil, err
	}
	position, err := distributions.NewGaussian(dimension)
	if err != nil {
		return nil, err
	}
	return &IntegratedProcess{velocity: velocity, position: position}, nil
}

// StateDimension returns the size of the stacked position and velocity.
func (p *IntegratedProcess) StateDimension() int {
	return 2 * p.velocity.Dimension()
}

// NoiseDimension returns the size of the standard normal variate.
func (p *IntegratedProcess) NoiseDimension() int {
	return p.velocity.Dimension()
}

// InputDimension returns the size of the acceleration input.
func (p *IntegratedProcess) InputDimension() int {
	return p.velocity.Dimension()
}

// SetParameters sets the damping coefficient and the acceleration covariance.
func (p *IntegratedProcess) SetParameters(damping float64, covariance mat.Matrix) error {
	return p.velocity.SetParameters(damping, covariance)
}

// Condition sets the distributions of position and velocity after dt, given the stacked
// state (position, velocity) and the acceleration input.
func (p *IntegratedProcess) Condition(dt float64, state, input mat.Vector) error {
	n := p.velocity.Dimension()
	if state.Len() != 2*n {
		return utils.NewDimensionMismatchError("integrated process state", 2*n, state.Len())
	}
	if err := checkConditionArgs(dt, n, input); err != nil {
		return err
	}
	position := mat.NewVecDense(n, nil)
	velocity := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		position.SetVec(i, state.AtVec(i))
		velocity.SetVec(i, state.AtVec(n+i))
	}

	if err := p.velocity.Condition(dt, velocity, input); err != nil {
		return err
	}

	vFactor, uFactor := p.positionMeanFactors(dt)
	mean := mat.NewVecDense(n, nil)
	mean.AddScaledVec(position, vFactor, velocity)
	mean.AddScaledVec(mean, uFactor, input)

	cov := mat.NewSymDense(n, nil)
	cov.ScaleSym(p.positionVarianceFactor(dt), p.velocity.covariance)

	if err := p.position.SetMean(mean); err != nil {
		return err
	}
	return p.position.SetCovariance(cov)
}

// MapStandardNormal maps a standard normal variate onto the stacked (position, velocity) sample.
func (p *IntegratedProcess) MapStandardNormal(noise mat.Vector) (*mat.VecDense, error) {
	position, err := p.position.MapStandardNormal(noise)
	if err != nil {
		return nil, err
	}
	velocity, err := p.velocity.MapStandardNormal(noise)
	if err != nil {
		return nil, err
	}
	n := p.velocity.Dimension()
	out := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, position.AtVec(i))
		out.SetVec(n+i, velocity.AtVec(i))
	}
	return out, nil
}

// positionMeanFactors returns the factors of the current velocity and of the input in the mean
// position displacement.
func (p *IntegratedProcess) positionMeanFactors(dt float64) (float64, float64) {
	c := p.velocity.Damping()
	if c == 0 {
		return dt, dt * dt / 2
	}
	integral := -math.Expm1(-c*dt) / c
	if c*dt < 1e-4 {
		return integral, dt * dt / 2 * (1 - c*dt/3)
	}
	return integral, (dt - integral) / c
}

// positionVarianceFactor is the variance of the integrated Ornstein-Uhlenbeck process per unit
// acceleration covariance.
func (p *IntegratedProcess) positionVarianceFactor(dt float64) float64 {
	c := p.velocity.Damping()
	// the closed form cancels catastrophically for small c*dt; the series is c-free to first order
	if c*dt < 1e-4 {
		return dt * dt * dt / 3 * (1 - 3*c*dt/4)
	}
	return (dt + 2*math.Expm1(-c*dt)/c - math.Expm1(-2*c*dt)/(2*c)) / (c * c)
}
