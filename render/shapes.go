package render

import (
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/posetracking/utils"
)

// Shape is a solid in its body's frame.
type Shape interface {
	// Intersect returns the smallest non-negative t at which origin + t*dir enters or leaves the
	// solid.
	Intersect(origin, dir r3.Vector) (float64, bool)
}

// AttributeMap is a loosely typed set of shape attributes, as found in a config file.
type AttributeMap map[string]interface{}

// ShapeConfig names a shape type and its attributes.
type ShapeConfig struct {
	Type       string       `json:"type"`
	Attributes AttributeMap `json:"attributes"`
}

// SphereConfig are the attributes of a sphere.
type SphereConfig struct {
	Radius float64   `json:"radius"`
	Center []float64 `json:"center"`
}

// BoxConfig are the attributes of a box. Dims are the full edge lengths.
type BoxConfig struct {
	Dims   []float64 `json:"dims"`
	Center []float64 `json:"center"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ShapeConfig) Validate(path string) error {
	_, err := NewShape(*cfg)
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// NewShape builds the configured shape.
func NewShape(cfg ShapeConfig) (Shape, error) {
	switch cfg.Type {
	case "sphere":
		var conf SphereConfig
		if err := decodeAttributes(cfg.Attributes, &conf); err != nil {
			return nil, err
		}
		center, err := vectorAttribute("center", conf.Center)
		if err != nil {
			return nil, err
		}
		return NewSphere(center, conf.Radius)
	case "box":
		var conf BoxConfig
		if err := decodeAttributes(cfg.Attributes, &conf); err != nil {
			return nil, err
		}
		center, err := vectorAttribute("center", conf.Center)
		if err != nil {
			return nil, err
		}
		if len(conf.Dims) != 3 {
			return nil, utils.NewInvalidArgumentError("box dims must have 3 entries, got %d", len(conf.Dims))
		}
		return NewBox(center, r3.Vector{X: conf.Dims[0], Y: conf.Dims[1], Z: conf.Dims[2]})
	case "":
		return nil, utils.NewInvalidArgumentError("shape type is required")
	default:
		return nil, utils.NewInvalidArgumentError("unknown shape type %q", cfg.Type)
	}
}

func decodeAttributes(attrs AttributeMap, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: out})
	if err != nil {
		return errors.Wrap(err, "error creating decoder")
	}
	if err := decoder.Decode(attrs); err != nil {
		return errors.Wrap(err, "error decoding shape attributes")
	}
	return nil
}

func vectorAttribute(name string, v []float64) (r3.Vector, error) {
	switch len(v) {
	case 0:
		return r3.Vector{}, nil
	case 3:
		return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return r3.Vector{}, utils.NewInvalidArgumentError("%s must have 3 entries, got %d", name, len(v))
	}
}

type sphere struct {
	center r3.Vector
	radius float64
}

// NewSphere returns a sphere about center.
func NewSphere(center r3.Vector, radius float64) (Shape, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, utils.NewInvalidArgumentError("sphere radius must be positive, got %v", radius)
	}
	return &sphere{center: center, radius: radius}, nil
}

func (s *sphere) Intersect(origin, dir r3.Vector) (float64, bool) {
	oc := origin.Sub(s.center)
	a := dir.Norm2()
	b := 2 * dir.Dot(oc)
	c := oc.Norm2() - s.radius*s.radius
	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return 0, false
	}
	root := math.Sqrt(disc)
	if t := (-b - root) / (2 * a); t >= 0 {
		return t, true
	}
	// the origin is inside the sphere
	if t := (-b + root) / (2 * a); t >= 0 {
		return t, true
	}
	return 0, false
}

type box struct {
	center   r3.Vector
	halfSize [3]float64
}

// NewBox returns an axis aligned box about center with the given edge lengths.
func NewBox(center, dims r3.Vector) (Shape, error) {
	if !(dims.X > 0 && dims.Y > 0 && dims.Z > 0) {
		return nil, utils.NewInvalidArgumentError("box dimensions must be positive, got %v", dims)
	}
	return &box{center: center, halfSize: [3]float64{dims.X / 2, dims.Y / 2, dims.Z / 2}}, nil
}

func (b *box) Intersect(origin, dir r3.Vector) (float64, bool) {
	o := origin.Sub(b.center)
	ps := [3]float64{o.X, o.Y, o.Z}
	ds := [3]float64{dir.X, dir.Y, dir.Z}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		if ds[i] == 0 {
			if math.Abs(ps[i]) > b.halfSize[i] {
				return 0, false
			}
			continue
		}
		t1 := (-b.halfSize[i] - ps[i]) / ds[i]
		t2 := (b.halfSize[i] - ps[i]) / ds[i]
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}
	if tmax < math.Max(tmin, 0) {
		return 0, false
	}
	if tmin >= 0 {
		return tmin, true
	}
	return tmax, true
}
