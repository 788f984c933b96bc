package wiener

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/utils"
)

func diag(v float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{v, 0, 0, 0, v, 0, 0, 0, v})
}

func TestDampedProcessMean(t *testing.T) {
	p, err := NewDampedProcess(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.SetParameters(2, mat.NewDense(3, 3, nil)), test.ShouldBeNil)

	v := mat.NewVecDense(3, []float64{1, -2, 0})
	u := mat.NewVecDense(3, []float64{0, 0, 4})
	test.That(t, p.Condition(0.5, v, u), test.ShouldBeNil)

	out, err := p.MapStandardNormal(mat.NewVecDense(3, []float64{1, 1, 1}))
	test.That(t, err, test.ShouldBeNil)
	decay := math.Exp(-1)
	test.That(t, out.AtVec(0), test.ShouldAlmostEqual, decay)
	test.That(t, out.AtVec(1), test.ShouldAlmostEqual, -2*decay)
	test.That(t, out.AtVec(2), test.ShouldAlmostEqual, 4*(1-decay)/2)
}

func TestDampedProcessVariance(t *testing.T) {
	p, err := NewDampedProcess(3)
	test.That(t, err, test.ShouldBeNil)
	zero := mat.NewVecDense(3, nil)

	// undamped: variance grows linearly
	test.That(t, p.SetParameters(0, diag(4)), test.ShouldBeNil)
	test.That(t, p.Condition(0.25, zero, zero), test.ShouldBeNil)
	out, err := p.MapStandardNormal(mat.NewVecDense(3, []float64{1, 0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.AtVec(0), test.ShouldAlmostEqual, 1.) // sqrt(4 * 0.25)

	// damped: variance saturates at sigma^2 / 2c
	test.That(t, p.SetParameters(1, diag(4)), test.ShouldBeNil)
	test.That(t, p.Condition(1000, zero, zero), test.ShouldBeNil)
	out, err = p.MapStandardNormal(mat.NewVecDense(3, []float64{0, 1, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.AtVec(1), test.ShouldAlmostEqual, math.Sqrt(2))
}

func TestIntegratedProcessUndamped(t *testing.T) {
	p, err := NewIntegratedProcess(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.StateDimension(), test.ShouldEqual, 6)
	test.That(t, p.NoiseDimension(), test.ShouldEqual, 3)
	test.That(t, p.InputDimension(), test.ShouldEqual, 3)
	test.That(t, p.SetParameters(0, diag(3)), test.ShouldBeNil)

	state := mat.NewVecDense(6, []float64{0, 0, 0, 1, 2, 3})
	input := mat.NewVecDense(3, []float64{2, 0, 0})
	test.That(t, p.Condition(2, state, input), test.ShouldBeNil)

	out, err := p.MapStandardNormal(mat.NewVecDense(3, nil))
	test.That(t, err, test.ShouldBeNil)
	// x + v dt + u dt^2 / 2
	test.That(t, out.AtVec(0), test.ShouldAlmostEqual, 2.+4.)
	test.That(t, out.AtVec(1), test.ShouldAlmostEqual, 4.)
	test.That(t, out.AtVec(2), test.ShouldAlmostEqual, 6.)
	// v + u dt
	test.That(t, out.AtVec(3), test.ShouldAlmostEqual, 1.+4.)
	test.That(t, out.AtVec(4), test.ShouldAlmostEqual, 2.)
	test.That(t, out.AtVec(5), test.ShouldAlmostEqual, 3.)

	// unit noise on z: position std sqrt(3 dt^3 / 3), velocity std sqrt(3 dt)
	out, err = p.MapStandardNormal(mat.NewVecDense(3, []float64{0, 0, 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.AtVec(2), test.ShouldAlmostEqual, 6+math.Sqrt(8))
	test.That(t, out.AtVec(5), test.ShouldAlmostEqual, 3+math.Sqrt(6))
}

func TestIntegratedProcessDampedLimit(t *testing.T) {
	// a tiny damping must agree with the undamped closed form
	undamped, err := NewIntegratedProcess(3)
	test.That(t, err, test.ShouldBeNil)
	damped, err := NewIntegratedProcess(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, undamped.SetParameters(0, diag(1)), test.ShouldBeNil)
	test.That(t, damped.SetParameters(1e-7, diag(1)), test.ShouldBeNil)

	state := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	input := mat.NewVecDense(3, []float64{1, 1, 1})
	noise := mat.NewVecDense(3, []float64{0.3, -1, 2})
	test.That(t, undamped.Condition(0.1, state, input), test.ShouldBeNil)
	test.That(t, damped.Condition(0.1, state, input), test.ShouldBeNil)
	a, err := undamped.MapStandardNormal(noise)
	test.That(t, err, test.ShouldBeNil)
	b, err := damped.MapStandardNormal(noise)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(a, b, 1e-6), test.ShouldBeTrue)

	// the closed form and the series agree where they hand over
	p, err := NewIntegratedProcess(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.SetParameters(1, diag(1)), test.ShouldBeNil)
	below := p.positionVarianceFactor(0.99e-4)
	above := p.positionVarianceFactor(1.01e-4)
	test.That(t, below, test.ShouldBeLessThan, above)
	test.That(t, above/below, test.ShouldAlmostEqual, math.Pow(1.01/0.99, 3), 1e-3)

	_, uBelow := p.positionMeanFactors(0.99e-4)
	_, uAbove := p.positionMeanFactors(1.01e-4)
	test.That(t, uAbove/uBelow, test.ShouldAlmostEqual, math.Pow(1.01/0.99, 2), 1e-3)

	// the input gain keeps full precision under very weak damping
	test.That(t, p.SetParameters(1e-9, diag(1)), test.ShouldBeNil)
	_, u := p.positionMeanFactors(0.01)
	test.That(t, u, test.ShouldAlmostEqual, 0.01*0.01/2, 1e-18)
}

func TestIntegratedProcessRejects(t *testing.T) {
	p, err := NewIntegratedProcess(3)
	test.That(t, err, test.ShouldBeNil)

	err = p.SetParameters(-1, diag(1))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	err = p.SetParameters(1, mat.NewDense(2, 2, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)

	zero3 := mat.NewVecDense(3, nil)
	err = p.Condition(1, mat.NewVecDense(3, nil), zero3)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	err = p.Condition(-1, mat.NewVecDense(6, nil), zero3)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	err = p.Condition(1, mat.NewVecDense(6, nil), mat.NewVecDense(2, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)

	test.That(t, p.Condition(1, mat.NewVecDense(6, nil), zero3), test.ShouldBeNil)
	_, err = p.MapStandardNormal(mat.NewVecDense(6, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
}
