// Package distributions implements the Gaussian and truncated Gaussian distributions the models
// use to map standard normal variates onto their noise.
package distributions

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/utils"
)

// symmetryTolerance is the relative asymmetry accepted in a covariance before it is rejected.
const symmetryTolerance = 1e-9

// Gaussian is a multivariate normal distribution with a positive semi-definite covariance.
type Gaussian struct {
	mean       *mat.VecDense
	covariance *mat.SymDense

	// symmetric square root of covariance, nil until first needed after a covariance change
	sqrt *mat.Dense
}

// NewGaussian returns a standard normal distribution of the given dimension.
func NewGaussian(dimension int) (*Gaussian, error) {
	if dimension <= 0 {
		return nil, utils.NewInvalidArgumentError("gaussian dimension must be positive, got %d", dimension)
	}
	cov := mat.NewSymDense(dimension, nil)
	for i := 0; i < dimension; i++ {
		cov.SetSym(i, i, 1)
	}
	return &Gaussian{mean: mat.NewVecDense(dimension, nil), covariance: cov}, nil
}

// Dimension returns the dimension of the distribution.
func (g *Gaussian) Dimension() int {
	return g.mean.Len()
}

// Mean returns the mean.
func (g *Gaussian) Mean() mat.Vector {
	return g.mean
}

// SetMean sets the mean.
func (g *Gaussian) SetMean(mean mat.Vector) error {
	if mean.Len() != g.Dimension() {
		return utils.NewDimensionMismatchError("gaussian mean", g.Dimension(), mean.Len())
	}
	g.mean.CopyVec(mean)
	return nil
}

// Covariance returns the covariance.
func (g *Gaussian) Covariance() mat.Symmetric {
	return g.covariance
}

// SetCovariance sets the covariance. It must be square, of the distribution's dimension and
// symmetric; positive semi-definiteness is enforced when the square root is taken.
func (g *Gaussian) SetCovariance(covariance mat.Matrix) error {
	cov, err := ToSymmetric(covariance, g.Dimension())
	if err != nil {
		return errors.Wrap(err, "gaussian covariance")
	}
	g.covariance = cov
	g.sqrt = nil
	return nil
}

// SquareRoot returns the symmetric matrix S with S*S = covariance. Small negative eigenvalues
// from round-off are treated as zero.
func (g *Gaussian) SquareRoot() (mat.Matrix, error) {
	if g.sqrt != nil {
		return g.sqrt, nil
	}
	n := g.Dimension()
	if mat.Equal(g.covariance, mat.NewSymDense(n, nil)) {
		g.sqrt = mat.NewDense(n, n, nil)
		return g.sqrt, nil
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(g.covariance, true); !ok {
		return nil, utils.NewNumericDivergenceError("eigen decomposition of covariance failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	scale := 0.
	for _, v := range values {
		scale = math.Max(scale, math.Abs(v))
	}
	for i, v := range values {
		if v < -symmetryTolerance*math.Max(scale, 1) {
			return nil, utils.NewInvalidArgumentError("covariance is not positive semi-definite (eigenvalue %v)", v)
		}
		values[i] = math.Sqrt(math.Max(v, 0))
	}

	var scaled mat.Dense
	scaled.Apply(func(_, j int, v float64) float64 { return v * values[j] }, &vectors)
	sqrt := mat.NewDense(n, n, nil)
	sqrt.Mul(&scaled, vectors.T())
	g.sqrt = sqrt
	return sqrt, nil
}

// MapStandardNormal maps a standard normal variate to a sample of this distribution:
// mean + S*noise.
func (g *Gaussian) MapStandardNormal(noise mat.Vector) (*mat.VecDense, error) {
	if noise.Len() != g.Dimension() {
		return nil, utils.NewDimensionMismatchError("standard normal variate", g.Dimension(), noise.Len())
	}
	sqrt, err := g.SquareRoot()
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(g.Dimension(), nil)
	out.MulVec(sqrt, noise)
	out.AddVec(out, g.mean)
	return out, nil
}

// ToSymmetric checks that m is a symmetric n x n matrix and returns it as a SymDense.
func ToSymmetric(m mat.Matrix, n int) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != n || c != n {
		return nil, utils.NewInvalidArgumentError("matrix is %dx%d, expected %dx%d", r, c, n, n)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if !utils.AllFinite(a, b) {
				return nil, utils.NewInvalidArgumentError("matrix entry (%d, %d) is not finite", i, j)
			}
			if math.Abs(a-b) > symmetryTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return nil, utils.NewInvalidArgumentError("matrix is not symmetric at (%d, %d)", i, j)
			}
			sym.SetSym(i, j, (a+b)/2)
		}
	}
	return sym, nil
}
