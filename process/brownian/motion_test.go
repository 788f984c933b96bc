package brownian

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/rigidbody"
	"go.viam.com/posetracking/spatialmath"
	"go.viam.com/posetracking/utils"
)

func diag(v float64) *mat.DiagDense {
	return mat.NewDiagDense(3, []float64{v, v, v})
}

func newTestModel(t *testing.T, objects int, params ObjectParameters) *MotionModel {
	t.Helper()
	m, err := NewMotionModel(objects, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < objects; i++ {
		test.That(t, m.SetParameters(i, params), test.ShouldBeNil)
	}
	return m
}

func movingState(t *testing.T) *rigidbody.State {
	t.Helper()
	s, err := rigidbody.NewState(2)
	test.That(t, err, test.ShouldBeNil)
	s.SetPosition(0, r3.Vector{X: 0.1, Y: -0.2, Z: 1.5})
	s.SetQuaternion(0, spatialmath.R3AAToQuat(r3.Vector{X: 0.3, Y: 0.1, Z: -0.4}))
	s.SetLinearVelocity(0, r3.Vector{X: 0.05, Z: -0.02})
	s.SetAngularVelocity(0, r3.Vector{Y: 0.5, Z: 0.2})
	s.SetPosition(1, r3.Vector{X: -0.3, Z: 2})
	s.SetAngularVelocity(1, r3.Vector{X: -1})
	return s
}

func TestNewMotionModel(t *testing.T) {
	_, err := NewMotionModel(0, logging.NewTestLogger(t))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)

	m, err := NewMotionModel(3, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.ObjectCount(), test.ShouldEqual, 3)
	test.That(t, m.StateDimension(), test.ShouldEqual, 36)
	test.That(t, m.NoiseDimension(), test.ShouldEqual, 18)
	test.That(t, m.StandardVariateDimension(), test.ShouldEqual, 18)
	test.That(t, m.InputDimension(), test.ShouldEqual, 18)
}

func TestSetParametersRejects(t *testing.T) {
	m, err := NewMotionModel(1, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	good := ObjectParameters{LinearAccelerationCovariance: diag(1), AngularAccelerationCovariance: diag(1)}

	for _, tc := range []struct {
		name   string
		index  int
		params ObjectParameters
	}{
		{"index", 1, good},
		{"negative damping", 0, ObjectParameters{
			Damping: -1, LinearAccelerationCovariance: diag(1), AngularAccelerationCovariance: diag(1),
		}},
		{"missing covariance", 0, ObjectParameters{LinearAccelerationCovariance: diag(1)}},
		{"wrong size", 0, ObjectParameters{
			LinearAccelerationCovariance: mat.NewDense(2, 2, nil), AngularAccelerationCovariance: diag(1),
		}},
		{"asymmetric", 0, ObjectParameters{
			LinearAccelerationCovariance:  diag(1),
			AngularAccelerationCovariance: mat.NewDense(3, 3, []float64{1, 1, 0, 0, 1, 0, 0, 0, 1}),
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := m.SetParameters(tc.index, tc.params)
			test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
		})
	}
	test.That(t, m.SetParameters(0, good), test.ShouldBeNil)
}

func TestSampleKeepsUnitQuaternion(t *testing.T) {
	m := newTestModel(t, 2, ObjectParameters{
		RotationCenter:                r3.Vector{X: 0.02, Y: 0.01},
		Damping:                       0.5,
		LinearAccelerationCovariance:  diag(0.5),
		AngularAccelerationCovariance: diag(3),
	})
	state := movingState(t)
	input := mat.NewVecDense(m.InputDimension(), nil)
	noise := mat.NewVecDense(m.NoiseDimension(), nil)
	for step := 0; step < 50; step++ {
		for i := 0; i < noise.Len(); i++ {
			noise.SetVec(i, math.Sin(float64(step*noise.Len()+i))*2)
		}
		next, err := m.PredictState(0.1, state, noise, input)
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < next.BodyCount(); i++ {
			test.That(t, quat.Abs(next.Quaternion(i)), test.ShouldAlmostEqual, 1., 1e-12)
		}
		state = next
	}
}

func TestZeroCovarianceIsDeterministic(t *testing.T) {
	m := newTestModel(t, 2, ObjectParameters{
		RotationCenter:                r3.Vector{Z: 0.1},
		Damping:                       1,
		LinearAccelerationCovariance:  mat.NewDense(3, 3, nil),
		AngularAccelerationCovariance: mat.NewDense(3, 3, nil),
	})
	state := movingState(t)
	input := mat.NewVecDense(m.InputDimension(), nil)

	a, err := m.PredictState(0.05, state, mat.NewVecDense(m.NoiseDimension(), nil), input)
	test.That(t, err, test.ShouldBeNil)
	noise := mat.NewVecDense(m.NoiseDimension(), nil)
	for i := 0; i < noise.Len(); i++ {
		noise.SetVec(i, float64(i)-5)
	}
	b, err := m.PredictState(0.05, state, noise, input)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Vector().RawVector().Data, test.ShouldResemble, a.Vector().RawVector().Data)
}

func TestZeroStepRoundTrip(t *testing.T) {
	m := newTestModel(t, 2, ObjectParameters{
		RotationCenter:                r3.Vector{X: 0.3, Y: -0.1, Z: 0.2},
		Damping:                       2,
		LinearAccelerationCovariance:  diag(1),
		AngularAccelerationCovariance: diag(1),
	})
	state := movingState(t)
	next, err := m.PredictState(0, state, mat.NewVecDense(m.NoiseDimension(), nil), mat.NewVecDense(m.InputDimension(), nil))
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < state.BodyCount(); i++ {
		test.That(t, next.Position(i).Sub(state.Position(i)).Norm(), test.ShouldBeLessThan, 1e-12)
		test.That(t, next.LinearVelocity(i).Sub(state.LinearVelocity(i)).Norm(), test.ShouldBeLessThan, 1e-12)
		test.That(t, next.AngularVelocity(i).Sub(state.AngularVelocity(i)).Norm(), test.ShouldBeLessThan, 1e-12)
		test.That(t, spatialmath.QuaternionAlmostEqual(next.Quaternion(i), state.Quaternion(i), 1e-12), test.ShouldBeTrue)
	}
	// the input state is untouched
	test.That(t, state.Vector().RawVector().Data, test.ShouldResemble, movingState(t).Vector().RawVector().Data)
}

func TestConstantRotation(t *testing.T) {
	m := newTestModel(t, 1, ObjectParameters{
		LinearAccelerationCovariance:  mat.NewDense(3, 3, nil),
		AngularAccelerationCovariance: mat.NewDense(3, 3, nil),
	})
	state, err := rigidbody.NewState(1)
	test.That(t, err, test.ShouldBeNil)
	state.SetAngularVelocity(0, r3.Vector{Z: 1})

	next, err := m.PredictState(0.01, state, mat.NewVecDense(6, nil), mat.NewVecDense(6, nil))
	test.That(t, err, test.ShouldBeNil)
	aa := spatialmath.QuatToR3AA(next.Quaternion(0))
	test.That(t, aa.Z, test.ShouldAlmostEqual, 0.01, 1e-6)
	test.That(t, aa.X, test.ShouldAlmostEqual, 0.)
	test.That(t, next.AngularVelocity(0).Z, test.ShouldAlmostEqual, 1.)
}

func TestRotationAboutCenter(t *testing.T) {
	center := r3.Vector{X: 1}
	m := newTestModel(t, 1, ObjectParameters{
		RotationCenter:                center,
		LinearAccelerationCovariance:  mat.NewDense(3, 3, nil),
		AngularAccelerationCovariance: mat.NewDense(3, 3, nil),
	})
	state, err := rigidbody.NewState(1)
	test.That(t, err, test.ShouldBeNil)
	omega := r3.Vector{Z: 1}
	// the rotation center stays put when the origin moves with -ω×c
	state.SetAngularVelocity(0, omega)
	state.SetLinearVelocity(0, omega.Cross(center).Mul(-1))

	for step := 0; step < 10; step++ {
		next, err := m.PredictState(0.1, state, mat.NewVecDense(6, nil), mat.NewVecDense(6, nil))
		test.That(t, err, test.ShouldBeNil)
		pivot := next.Position(0).Add(spatialmath.MulR3(next.RotationMatrix(0), center))
		test.That(t, pivot.Sub(center).Norm(), test.ShouldBeLessThan, 1e-9)
		test.That(t, next.LinearVelocity(0).Y, test.ShouldAlmostEqual, -1.)
		state = next
	}
	test.That(t, spatialmath.QuatToR3AA(state.Quaternion(0)).Z, test.ShouldAlmostEqual, 1., 1e-3)
}

func TestSetParametersAfterCondition(t *testing.T) {
	params := ObjectParameters{
		RotationCenter:                r3.Vector{X: 0.5},
		LinearAccelerationCovariance:  mat.NewDense(3, 3, nil),
		AngularAccelerationCovariance: mat.NewDense(3, 3, nil),
	}
	m := newTestModel(t, 1, params)
	state, err := rigidbody.NewState(1)
	test.That(t, err, test.ShouldBeNil)
	state.SetQuaternion(0, spatialmath.R3AAToQuat(r3.Vector{Z: 0.7}))
	test.That(t, m.Condition(0, state, mat.NewVecDense(6, nil)), test.ShouldBeNil)

	// new parameters only apply to the next Condition
	params.RotationCenter = r3.Vector{Y: 2}
	test.That(t, m.SetParameters(0, params), test.ShouldBeNil)
	next, err := m.MapStandardNormal(mat.NewVecDense(6, nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, next.Position(0).Norm(), test.ShouldBeLessThan, 1e-12)

	test.That(t, m.Condition(0, state, mat.NewVecDense(6, nil)), test.ShouldBeNil)
	next, err = m.MapStandardNormal(mat.NewVecDense(6, nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, next.Position(0).Norm(), test.ShouldBeLessThan, 1e-12)
}

func TestMotionModelRejects(t *testing.T) {
	m := newTestModel(t, 2, ObjectParameters{
		LinearAccelerationCovariance:  diag(1),
		AngularAccelerationCovariance: diag(1),
	})
	noise := mat.NewVecDense(m.NoiseDimension(), nil)
	input := mat.NewVecDense(m.InputDimension(), nil)

	_, err := m.MapStandardNormal(noise)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)

	state := movingState(t)
	test.That(t, m.Condition(0.1, state, input), test.ShouldBeNil)
	want, err := m.MapStandardNormal(noise)
	test.That(t, err, test.ShouldBeNil)

	one, err := rigidbody.NewState(1)
	test.That(t, err, test.ShouldBeNil)
	err = m.Condition(0.1, one, input)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	err = m.Condition(0.1, state, mat.NewVecDense(6, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	err = m.Condition(-1, state, input)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	err = m.Condition(0.1, state, nil)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	_, err = m.MapStandardNormal(nil)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	_, err = m.PredictState(0.1, state, nil, input)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	_, err = m.MapStandardNormal(mat.NewVecDense(3, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	_, err = m.PredictState(0.1, state, mat.NewVecDense(3, nil), input)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)

	// failed calls leave the conditioned step in place
	got, err := m.MapStandardNormal(noise)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Vector().RawVector().Data, test.ShouldResemble, want.Vector().RawVector().Data)
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate("motion")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"objects" is required`)

	cfg.Objects = []ObjectConfig{
		{Damping: -1, RotationCenter: []float64{1}, LinearAccelerationCovariance: []float64{1, 2}},
	}
	err = cfg.Validate("motion")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "motion.objects.0")
	test.That(t, err.Error(), test.ShouldContainSubstring, "damping")
	test.That(t, err.Error(), test.ShouldContainSubstring, "rotation_center")
	test.That(t, err.Error(), test.ShouldContainSubstring, "linear_acceleration_covariance must have 3 or 9 entries")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"angular_acceleration_covariance" is required`)

	cfg.Objects = []ObjectConfig{
		{
			RotationCenter:                []float64{0, 0, 0.1},
			Damping:                       0.5,
			LinearAccelerationCovariance:  []float64{1, 1, 1},
			AngularAccelerationCovariance: []float64{2, 0, 0, 0, 2, 0, 0, 0, 2},
		},
		{LinearAccelerationCovariance: []float64{1, 1, 1}, AngularAccelerationCovariance: []float64{1, 1, 1}},
	}
	test.That(t, cfg.Validate("motion"), test.ShouldBeNil)
	params := cfg.Objects[0].Parameters()
	test.That(t, params.RotationCenter, test.ShouldResemble, r3.Vector{Z: 0.1})
	test.That(t, params.AngularAccelerationCovariance.At(1, 1), test.ShouldEqual, 2.)

	m, err := cfg.NewModel(logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.ObjectCount(), test.ShouldEqual, 2)

	cfg.Objects[1].AngularAccelerationCovariance = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, err = cfg.NewModel(logging.NewTestLogger(t))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
}
