// Package rigidbody implements the pose and velocity container for a set of free floating rigid
// bodies.
package rigidbody

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posetracking/spatialmath"
	"go.viam.com/posetracking/utils"
)

const (
	// PoseDimension is the number of values describing the pose of one body: position followed by
	// the rotation vector.
	PoseDimension = 6
	// DimensionPerBody is the size of one body in the flat vector view: pose, linear velocity,
	// angular velocity.
	DimensionPerBody = 12
)

type body struct {
	position        r3.Vector
	orientation     quat.Number
	linearVelocity  r3.Vector
	angularVelocity r3.Vector
}

// State holds position, orientation, linear and angular velocity of each body. Orientations are
// kept at unit norm by every setter.
type State struct {
	bodies []body
}

// NewState returns a state of count bodies at the origin with identity orientation and no
// velocity.
func NewState(count int) (*State, error) {
	if count <= 0 {
		return nil, utils.NewInvalidArgumentError("body count must be positive, got %d", count)
	}
	s := &State{bodies: make([]body, count)}
	for i := range s.bodies {
		s.bodies[i].orientation = spatialmath.NewZeroQuaternion()
	}
	return s, nil
}

// NewStateFromVector builds a state from its flat vector view, see Vector.
func NewStateFromVector(v mat.Vector) (*State, error) {
	n := v.Len()
	if n == 0 || n%DimensionPerBody != 0 {
		return nil, utils.NewInvalidArgumentError(
			"state vector length %d is not a positive multiple of %d", n, DimensionPerBody)
	}
	s, err := NewState(n / DimensionPerBody)
	if err != nil {
		return nil, err
	}
	for i := range s.bodies {
		off := i * DimensionPerBody
		s.bodies[i] = body{
			position:        spatialmath.R3FromVec(v, off),
			orientation:     spatialmath.R3AAToQuat(spatialmath.R3FromVec(v, off+3)),
			linearVelocity:  spatialmath.R3FromVec(v, off+6),
			angularVelocity: spatialmath.R3FromVec(v, off+9),
		}
	}
	return s, nil
}

// BodyCount returns the number of bodies.
func (s *State) BodyCount() int {
	return len(s.bodies)
}

// Dimension returns the length of the flat vector view.
func (s *State) Dimension() int {
	return len(s.bodies) * DimensionPerBody
}

// Position of body i.
func (s *State) Position(i int) r3.Vector {
	return s.bodies[i].position
}

// SetPosition sets the position of body i.
func (s *State) SetPosition(i int, p r3.Vector) {
	s.bodies[i].position = p
}

// Quaternion returns the orientation of body i.
func (s *State) Quaternion(i int) quat.Number {
	return s.bodies[i].orientation
}

// SetQuaternion sets the orientation of body i, normalizing q.
func (s *State) SetQuaternion(i int, q quat.Number) {
	s.bodies[i].orientation = spatialmath.Normalize(q)
}

// LinearVelocity of body i.
func (s *State) LinearVelocity(i int) r3.Vector {
	return s.bodies[i].linearVelocity
}

// SetLinearVelocity sets the linear velocity of body i.
func (s *State) SetLinearVelocity(i int, v r3.Vector) {
	s.bodies[i].linearVelocity = v
}

// AngularVelocity of body i.
func (s *State) AngularVelocity(i int) r3.Vector {
	return s.bodies[i].angularVelocity
}

// SetAngularVelocity sets the angular velocity of body i.
func (s *State) SetAngularVelocity(i int, w r3.Vector) {
	s.bodies[i].angularVelocity = w
}

// RotationMatrix returns the rotation matrix of body i.
func (s *State) RotationMatrix(i int) *mat.Dense {
	return spatialmath.QuatToRotationMatrix(s.bodies[i].orientation)
}

// Pose returns position and rotation vector of body i.
func (s *State) Pose(i int) []float64 {
	b := s.bodies[i]
	aa := spatialmath.QuatToR3AA(b.orientation)
	return []float64{b.position.X, b.position.Y, b.position.Z, aa.X, aa.Y, aa.Z}
}

// Poses returns the poses of all bodies one after another.
func (s *State) Poses() []float64 {
	out := make([]float64, 0, len(s.bodies)*PoseDimension)
	for i := range s.bodies {
		out = append(out, s.Pose(i)...)
	}
	return out
}

// Vector returns the flat vector view: per body position, rotation vector, linear velocity and
// angular velocity.
func (s *State) Vector() *mat.VecDense {
	data := make([]float64, 0, s.Dimension())
	for i, b := range s.bodies {
		data = append(data, s.Pose(i)...)
		data = append(data, spatialmath.R3ToSlice(b.linearVelocity)...)
		data = append(data, spatialmath.R3ToSlice(b.angularVelocity)...)
	}
	return mat.NewVecDense(len(data), data)
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{bodies: make([]body, len(s.bodies))}
	copy(c.bodies, s.bodies)
	return c
}
