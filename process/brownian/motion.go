// Package brownian implements a Brownian motion model for free floating rigid bodies. Each body
// is driven by one integrated damped Wiener process for its translation and one for its
// rotation, and the whole transition is a deterministic function of a standard normal variate.
package brownian

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/distributions"
	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/models"
	"go.viam.com/posetracking/process/wiener"
	"go.viam.com/posetracking/rigidbody"
	"go.viam.com/posetracking/spatialmath"
	"go.viam.com/posetracking/utils"
)

// DimensionPerObject is the noise and input dimension of one body: three translational and three
// rotational components.
const DimensionPerObject = 6

var (
	_ models.ProcessModel[*rigidbody.State, mat.Vector] = (*MotionModel)(nil)
	_ models.StandardNormalMapping[*rigidbody.State]    = (*MotionModel)(nil)
)

// ObjectParameters configure the motion of one body.
type ObjectParameters struct {
	// RotationCenter is the object-local point the body rotates about.
	RotationCenter r3.Vector
	// Damping is shared by the translational and rotational process.
	Damping                       float64
	LinearAccelerationCovariance  mat.Matrix
	AngularAccelerationCovariance mat.Matrix
}

// MotionModel propagates position, orientation and velocities of a fixed number of bodies.
// Per-body integrators are owned by the model and mutated by Condition, so a model must not be
// shared between goroutines.
type MotionModel struct {
	logger logging.Logger

	rotationCenters []r3.Vector
	linear          []*wiener.IntegratedProcess
	angular         []*wiener.IntegratedProcess

	// set by Condition: the state about the rotation centers, the centers it was moved by and the
	// quaternion maps
	conditioned        *rigidbody.State
	conditionedCenters []r3.Vector
	quaternionMaps     []*mat.Dense
}

// NewMotionModel returns a model for objectCount bodies. Until SetParameters is called each body
// is undamped with zero acceleration covariance and rotates about its origin.
func NewMotionModel(objectCount int, logger logging.Logger) (*MotionModel, error) {
	if objectCount <= 0 {
		return nil, utils.NewInvalidArgumentError("object count must be positive, got %d", objectCount)
	}
	m := &MotionModel{
		logger:          logger,
		rotationCenters: make([]r3.Vector, objectCount),
		linear:          make([]*wiener.IntegratedProcess, objectCount),
		angular:         make([]*wiener.IntegratedProcess, objectCount),
		quaternionMaps:  make([]*mat.Dense, objectCount),
	}
	for i := 0; i < objectCount; i++ {
		var err error
		if m.linear[i], err = wiener.NewIntegratedProcess(3); err != nil {
			return nil, err
		}
		if m.angular[i], err = wiener.NewIntegratedProcess(3); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObjectCount returns the number of bodies.
func (m *MotionModel) ObjectCount() int {
	return len(m.linear)
}

// StateDimension returns the dimension of the flat vector view of the state.
func (m *MotionModel) StateDimension() int {
	return m.ObjectCount() * rigidbody.DimensionPerBody
}

// NoiseDimension returns the dimension of the standard normal variate.
func (m *MotionModel) NoiseDimension() int {
	return m.ObjectCount() * DimensionPerObject
}

// StandardVariateDimension is the same as NoiseDimension.
func (m *MotionModel) StandardVariateDimension() int {
	return m.NoiseDimension()
}

// InputDimension returns the dimension of the acceleration input.
func (m *MotionModel) InputDimension() int {
	return m.ObjectCount() * DimensionPerObject
}

// SetParameters sets the parameters of body i. They take effect at the next Condition.
func (m *MotionModel) SetParameters(i int, params ObjectParameters) error {
	if i < 0 || i >= m.ObjectCount() {
		return utils.NewInvalidArgumentError("object index %d out of range [0, %d)", i, m.ObjectCount())
	}
	// validate both covariances before touching either process
	for _, cov := range []mat.Matrix{params.LinearAccelerationCovariance, params.AngularAccelerationCovariance} {
		if cov == nil {
			return utils.NewInvalidArgumentError("object %d is missing an acceleration covariance", i)
		}
		if _, err := distributions.ToSymmetric(cov, 3); err != nil {
			return err
		}
	}
	if !utils.IsFinite(params.Damping) || params.Damping < 0 {
		return utils.NewInvalidArgumentError("damping must be finite and non-negative, got %v", params.Damping)
	}
	if !utils.AllFinite(spatialmath.R3ToSlice(params.RotationCenter)...) {
		return utils.NewInvalidArgumentError("rotation center %v is not finite", params.RotationCenter)
	}

	if err := m.linear[i].SetParameters(params.Damping, params.LinearAccelerationCovariance); err != nil {
		return err
	}
	if err := m.angular[i].SetParameters(params.Damping, params.AngularAccelerationCovariance); err != nil {
		return err
	}
	m.rotationCenters[i] = params.RotationCenter
	m.logger.Debugw("set motion parameters", "object", i, "damping", params.Damping, "rotation_center", params.RotationCenter)
	return nil
}

// Condition prepares the per-body integrators for a step of dt from state under the acceleration
// input. state is given about the body origins and is not modified.
func (m *MotionModel) Condition(dt float64, state *rigidbody.State, input mat.Vector) error {
	if state == nil || state.BodyCount() != m.ObjectCount() {
		count := 0
		if state != nil {
			count = state.BodyCount()
		}
		return utils.NewDimensionMismatchError("state body count", m.ObjectCount(), count)
	}
	if input == nil {
		return utils.NewInvalidArgumentError("motion input must not be nil")
	}
	if input.Len() != m.InputDimension() {
		return utils.NewDimensionMismatchError("motion input", m.InputDimension(), input.Len())
	}
	if !utils.IsFinite(dt) || dt < 0 {
		return utils.NewInvalidArgumentError("elapsed time must be finite and non-negative, got %v", dt)
	}

	internal := state.Clone()
	centers := append([]r3.Vector(nil), m.rotationCenters...)
	quaternionMaps := make([]*mat.Dense, m.ObjectCount())
	for i := 0; i < m.ObjectCount(); i++ {
		quaternionMaps[i] = spatialmath.QuaternionMatrix(internal.Quaternion(i))

		// move from the pose of the body origin to the pose of the rotation center
		position := internal.Position(i).Add(spatialmath.MulR3(internal.RotationMatrix(i), centers[i]))
		internal.SetPosition(i, position)
		internal.SetLinearVelocity(i, internal.LinearVelocity(i).Add(internal.AngularVelocity(i).Cross(position)))

		off := i * DimensionPerObject
		if err := m.linear[i].Condition(dt, stackZeroAnd(internal.LinearVelocity(i)), subVector(input, off)); err != nil {
			return err
		}
		if err := m.angular[i].Condition(dt, stackZeroAnd(internal.AngularVelocity(i)), subVector(input, off+3)); err != nil {
			return err
		}
	}
	m.conditioned = internal
	m.conditionedCenters = centers
	m.quaternionMaps = quaternionMaps
	return nil
}

// MapStandardNormal maps a standard normal variate onto a sample of the state after the step set
// up by the last Condition. The returned state is about the body origins again.
func (m *MotionModel) MapStandardNormal(noise mat.Vector) (*rigidbody.State, error) {
	if m.conditioned == nil {
		return nil, utils.NewInvalidArgumentError("motion model sampled before it was conditioned")
	}
	if noise == nil {
		return nil, utils.NewInvalidArgumentError("motion noise must not be nil")
	}
	if noise.Len() != m.NoiseDimension() {
		return nil, utils.NewDimensionMismatchError("motion noise", m.NoiseDimension(), noise.Len())
	}

	prev := m.conditioned
	next := prev.Clone()
	for i := 0; i < m.ObjectCount(); i++ {
		off := i * DimensionPerObject
		linearDelta, err := m.linear[i].MapStandardNormal(subVector(noise, off))
		if err != nil {
			return nil, err
		}
		angularDelta, err := m.angular[i].MapStandardNormal(subVector(noise, off+3))
		if err != nil {
			return nil, err
		}

		next.SetPosition(i, prev.Position(i).Add(spatialmath.R3FromVec(linearDelta, 0)))

		var dq mat.VecDense
		dq.MulVec(m.quaternionMaps[i], subVector(angularDelta, 0))
		dq.AddVec(&dq, spatialmath.QuatToVec(prev.Quaternion(i)))
		q := spatialmath.VecToQuat(&dq)
		if !utils.AllFinite(q.Real, q.Imag, q.Jmag, q.Kmag) {
			m.logger.Warnw("motion model produced a non-finite orientation", "object", i)
			return nil, utils.NewNumericDivergenceError("object %d orientation %v", i, q)
		}
		next.SetQuaternion(i, q)

		next.SetLinearVelocity(i, spatialmath.R3FromVec(linearDelta, 3))
		next.SetAngularVelocity(i, spatialmath.R3FromVec(angularDelta, 3))

		// back from the rotation center to the body origin
		next.SetLinearVelocity(i, next.LinearVelocity(i).Sub(next.AngularVelocity(i).Cross(prev.Position(i))))
		next.SetPosition(i, next.Position(i).Sub(spatialmath.MulR3(next.RotationMatrix(i), m.conditionedCenters[i])))
	}
	return next, nil
}

// PredictState conditions on state and input and maps noise in one call.
func (m *MotionModel) PredictState(dt float64, state *rigidbody.State, noise, input mat.Vector) (*rigidbody.State, error) {
	if noise == nil {
		return nil, utils.NewInvalidArgumentError("motion noise must not be nil")
	}
	if noise.Len() != m.NoiseDimension() {
		return nil, utils.NewDimensionMismatchError("motion noise", m.NoiseDimension(), noise.Len())
	}
	if err := m.Condition(dt, state, input); err != nil {
		return nil, err
	}
	return m.MapStandardNormal(noise)
}

func stackZeroAnd(velocity r3.Vector) *mat.VecDense {
	return mat.NewVecDense(6, []float64{0, 0, 0, velocity.X, velocity.Y, velocity.Z})
}

func subVector(v mat.Vector, offset int) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.AtVec(offset), v.AtVec(offset + 1), v.AtVec(offset + 2)})
}
