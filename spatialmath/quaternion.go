// Package spatialmath defines spatial mathematical operations
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// below this rotation angle a rotation vector is treated as the identity.
const angleEpsilon = 1e-12

// NewZeroQuaternion returns the identity rotation.
func NewZeroQuaternion() quat.Number {
	return quat.Number{Real: 1}
}

// QuaternionMatrix returns the 4x3 matrix that maps a small world-frame rotation vector to the
// change of the quaternion coefficients, i.e. q + QuaternionMatrix(q)*dTheta is the first order
// approximation of (dTheta as a quaternion) * q. Rows are ordered real, i, j, k.
func QuaternionMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	m := mat.NewDense(4, 3, []float64{
		-x, -y, -z,
		w, z, -y,
		-z, w, x,
		y, -x, w,
	})
	m.Scale(0.5, m)
	return m
}

// QuatToVec returns the quaternion coefficients as a vector ordered real, i, j, k.
func QuatToVec(q quat.Number) *mat.VecDense {
	return mat.NewVecDense(4, []float64{q.Real, q.Imag, q.Jmag, q.Kmag})
}

// VecToQuat is the inverse of QuatToVec.
func VecToQuat(v mat.Vector) quat.Number {
	return quat.Number{Real: v.AtVec(0), Imag: v.AtVec(1), Jmag: v.AtVec(2), Kmag: v.AtVec(3)}
}

// Normalize scales q to unit norm. The zero quaternion has no direction and normalizes to the
// identity rotation.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return NewZeroQuaternion()
	}
	return quat.Scale(1/n, q)
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual reports whether two quaternions describe the same rotation to within tol,
// treating q and -q as equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	same := func(p, q quat.Number) bool {
		return math.Abs(p.Real-q.Real) <= tol &&
			math.Abs(p.Imag-q.Imag) <= tol &&
			math.Abs(p.Jmag-q.Jmag) <= tol &&
			math.Abs(p.Kmag-q.Kmag) <= tol
	}
	return same(a, b) || same(a, Flip(b))
}

// QuatToRotationMatrix returns the 3x3 rotation matrix of a unit quaternion.
func QuatToRotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// QuatToR3AA converts a quat to an R3 axis angle (rotation vector) in the same way the C++ Eigen
// library does. The identity maps to the zero vector.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR3AA(q quat.Number) r3.Vector {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < angleEpsilon {
		return r3.Vector{}
	}
	return r3.Vector{X: angle * q.Imag / denom, Y: angle * q.Jmag / denom, Z: angle * q.Kmag / denom}
}

// R3AAToQuat converts a rotation vector, whose norm is the rotation angle, to a unit quaternion.
func R3AAToQuat(aa r3.Vector) quat.Number {
	theta := aa.Norm()
	if theta < angleEpsilon {
		return NewZeroQuaternion()
	}
	s := math.Sin(theta/2) / theta
	return quat.Number{Real: math.Cos(theta / 2), Imag: aa.X * s, Jmag: aa.Y * s, Kmag: aa.Z * s}
}

// R3FromSlice reads three consecutive values starting at offset.
func R3FromSlice(s []float64, offset int) r3.Vector {
	return r3.Vector{X: s[offset], Y: s[offset+1], Z: s[offset+2]}
}

// R3FromVec reads three consecutive entries of v starting at offset.
func R3FromVec(v mat.Vector, offset int) r3.Vector {
	return r3.Vector{X: v.AtVec(offset), Y: v.AtVec(offset + 1), Z: v.AtVec(offset + 2)}
}

// R3ToSlice returns the components of v as a slice.
func R3ToSlice(v r3.Vector) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// MulR3 multiplies a 3x3 matrix with a vector.
func MulR3(m mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, R3ToSlice(v)))
	return R3FromVec(&out, 0)
}
