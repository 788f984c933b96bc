package render

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posetracking/rigidbody"
	"go.viam.com/posetracking/spatialmath"
	"go.viam.com/posetracking/utils"
)

// RayCaster renders one shape per body by casting a ray through every pixel center. Each body's
// pose is six values: the position of the body frame in the camera frame followed by its
// rotation vector.
type RayCaster struct {
	intrinsics PinholeCameraIntrinsics
	shapes     []Shape
	rays       []r3.Vector
}

var _ Renderer = (*RayCaster)(nil)

// NewRayCaster returns a renderer for the given camera and shapes.
func NewRayCaster(intrinsics *PinholeCameraIntrinsics, shapes []Shape) (*RayCaster, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return nil, utils.NewInvalidArgumentError("ray caster needs at least one shape")
	}
	rays := make([]r3.Vector, 0, intrinsics.Width*intrinsics.Height)
	for v := 0; v < intrinsics.Height; v++ {
		for u := 0; u < intrinsics.Width; u++ {
			rays = append(rays, intrinsics.Ray(float64(u), float64(v)))
		}
	}
	return &RayCaster{intrinsics: *intrinsics, shapes: shapes, rays: rays}, nil
}

// Rows returns the image height.
func (rc *RayCaster) Rows() int {
	return rc.intrinsics.Height
}

// Cols returns the image width.
func (rc *RayCaster) Cols() int {
	return rc.intrinsics.Width
}

// Render returns the depth of the closest surface along every pixel ray.
func (rc *RayCaster) Render(pose []float64) ([]float64, error) {
	if len(pose) != rigidbody.PoseDimension*len(rc.shapes) {
		return nil, utils.NewDimensionMismatchError("render pose", rigidbody.PoseDimension*len(rc.shapes), len(pose))
	}
	if !utils.AllFinite(pose...) {
		return nil, utils.NewInvalidArgumentError("render pose %v is not finite", pose)
	}

	// camera origin and inverse rotation per body
	origins := make([]r3.Vector, len(rc.shapes))
	inverses := make([]quat.Number, len(rc.shapes))
	for i := range rc.shapes {
		off := i * rigidbody.PoseDimension
		inverses[i] = quat.Conj(spatialmath.R3AAToQuat(spatialmath.R3FromSlice(pose, off+3)))
		origins[i] = spatialmath.RotateVector(inverses[i], spatialmath.R3FromSlice(pose, off).Mul(-1))
	}

	depth := make([]float64, len(rc.rays))
	for k, ray := range rc.rays {
		depth[k] = math.Inf(1)
		for i, shape := range rc.shapes {
			if t, ok := shape.Intersect(origins[i], spatialmath.RotateVector(inverses[i], ray)); ok && t < depth[k] {
				depth[k] = t
			}
		}
	}
	return depth, nil
}
