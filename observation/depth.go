package observation

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/models"
	"go.viam.com/posetracking/render"
	"go.viam.com/posetracking/rigidbody"
	"go.viam.com/posetracking/utils"
)

// DefaultMissingDepth replaces the depth of pixels whose ray hits nothing.
const DefaultMissingDepth = 7.

var _ models.ObservationModel[mat.Vector, *mat.VecDense] = (*DepthModel)(nil)

// Config configures a DepthModel.
type Config struct {
	CameraSigma float64 `json:"camera_sigma"`
	ModelSigma  float64 `json:"model_sigma"`
	// PoseDimension is the number of leading state entries passed to the renderer; 6 if unset.
	PoseDimension int `json:"pose_dimension,omitempty"`
	// MissingDepth replaces non-finite rendered depths; DefaultMissingDepth if unset.
	MissingDepth *float64 `json:"missing_depth,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.CameraSigma < 0 || !utils.IsFinite(cfg.CameraSigma) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("camera_sigma must be finite and non-negative, got %v", cfg.CameraSigma)))
	}
	if cfg.ModelSigma < 0 || !utils.IsFinite(cfg.ModelSigma) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("model_sigma must be finite and non-negative, got %v", cfg.ModelSigma)))
	}
	if cfg.PoseDimension < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("pose_dimension must be positive, got %d", cfg.PoseDimension)))
	}
	if md := cfg.MissingDepth; md != nil && (*md < 0 || !utils.IsFinite(*md)) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("missing_depth must be finite and non-negative, got %v", *md)))
	}
	return errs
}

// Sigma combines the camera and model noise: sqrt(camera^2 + model^2).
func (cfg *Config) Sigma() float64 {
	return math.Hypot(cfg.CameraSigma, cfg.ModelSigma)
}

// DepthModel predicts a depth image from a state laid out as [pose | occlusion logit per pixel].
// Rendered depth maps are cached by pose, so hypotheses sharing a pose are rendered once.
// PredictObservation may be called concurrently; calls into the renderer are serialized.
type DepthModel struct {
	logger   logging.Logger
	renderer render.Renderer
	camera   *FactorizedModel
	cache    *RenderCache

	poseDimension int
	missingDepth  float64

	renderMu sync.Mutex
	renders  atomic.Int64
}

// NewDepthModel returns a model observing through renderer.
func NewDepthModel(renderer render.Renderer, cfg Config, logger logging.Logger) (*DepthModel, error) {
	if err := cfg.Validate("depth"); err != nil {
		return nil, err
	}
	if renderer == nil {
		return nil, utils.NewInvalidArgumentError("depth model needs a renderer")
	}
	if renderer.Rows() <= 0 || renderer.Cols() <= 0 {
		return nil, utils.NewInvalidArgumentError("renderer resolution %dx%d", renderer.Rows(), renderer.Cols())
	}
	pixel, err := NewPixelModel(cfg.Sigma())
	if err != nil {
		return nil, err
	}
	camera, err := NewFactorizedModel(pixel, renderer.Rows()*renderer.Cols())
	if err != nil {
		return nil, err
	}
	m := &DepthModel{
		logger:        logger,
		renderer:      renderer,
		camera:        camera,
		cache:         NewRenderCache(),
		poseDimension: cfg.PoseDimension,
		missingDepth:  DefaultMissingDepth,
	}
	if m.poseDimension == 0 {
		m.poseDimension = rigidbody.PoseDimension
	}
	if cfg.MissingDepth != nil {
		m.missingDepth = *cfg.MissingDepth
	}
	return m, nil
}

// PixelCount returns the number of pixels of the camera.
func (m *DepthModel) PixelCount() int {
	return m.camera.PixelCount()
}

// PoseDimension returns the number of leading state entries that make up the pose.
func (m *DepthModel) PoseDimension() int {
	return m.poseDimension
}

// ObservationDimension is twice the pixel count.
func (m *DepthModel) ObservationDimension() int {
	return m.camera.ObservationDimension()
}

// StateDimension is the pose dimension plus one occlusion logit per pixel.
func (m *DepthModel) StateDimension() int {
	return m.poseDimension + m.PixelCount()
}

// NoiseDimension is the pixel count.
func (m *DepthModel) NoiseDimension() int {
	return m.camera.NoiseDimension()
}

// Renders returns how often the renderer has been called.
func (m *DepthModel) Renders() int64 {
	return m.renders.Load()
}

// CacheLen returns the number of cached renderings.
func (m *DepthModel) CacheLen() int {
	return m.cache.Len()
}

// ClearCache drops every cached rendering. Call it whenever the scene changes, at the latest
// once per filter step.
func (m *DepthModel) ClearCache() {
	m.cache.Clear()
}

// PredictObservation returns [y, y*y] for every pixel, where y is the rendered depth of the
// state's pose disturbed by noise scaled with the pixel's occlusion.
func (m *DepthModel) PredictObservation(state, noise mat.Vector, dt float64) (*mat.VecDense, error) {
	if state.Len() != m.StateDimension() {
		return nil, utils.NewDimensionMismatchError("depth model state", m.StateDimension(), state.Len())
	}
	if noise.Len() != m.NoiseDimension() {
		return nil, utils.NewDimensionMismatchError("depth model noise", m.NoiseDimension(), noise.Len())
	}

	pose := make([]float64, m.poseDimension)
	for i := range pose {
		pose[i] = state.AtVec(i)
	}
	depth, err := m.depth(pose)
	if err != nil {
		return nil, err
	}

	internal := mat.NewVecDense(2*len(depth), nil)
	for i, d := range depth {
		internal.SetVec(2*i, d)
		internal.SetVec(2*i+1, state.AtVec(m.poseDimension+i))
	}
	return m.camera.PredictObservation(internal, noise, dt)
}

// PredictObservations predicts the observations of many hypotheses concurrently. The result
// holds one observation per state, in order.
func (m *DepthModel) PredictObservations(ctx context.Context, states, noises []mat.Vector, dt float64) ([]*mat.VecDense, error) {
	if len(noises) != len(states) {
		return nil, utils.NewDimensionMismatchError("noise batch", len(states), len(noises))
	}
	out := make([]*mat.VecDense, len(states))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range states {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			obs, err := m.PredictObservation(states[i], noises[i], dt)
			if err != nil {
				return errors.Wrapf(err, "hypothesis %d", i)
			}
			out[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// depth returns the rendering for pose, rendering it on a cache miss.
func (m *DepthModel) depth(pose []float64) ([]float64, error) {
	if depth, ok := m.cache.Get(pose); ok {
		return depth, nil
	}

	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	// another caller may have rendered the pose while we waited
	if depth, ok := m.cache.Get(pose); ok {
		return depth, nil
	}

	m.logger.Debugw("render cache miss", "pose", pose, "cached", m.cache.Len())
	m.renders.Inc()
	depth, err := m.renderer.Render(pose)
	if err != nil {
		return nil, errors.Wrap(err, "rendering pose")
	}
	if len(depth) != m.PixelCount() {
		return nil, errors.Errorf("renderer returned %d depths for %d pixels", len(depth), m.PixelCount())
	}
	clean := make([]float64, len(depth))
	for i, d := range depth {
		if utils.IsFinite(d) {
			clean[i] = d
		} else {
			clean[i] = m.missingDepth
		}
	}
	m.cache.Set(pose, clean)
	return clean, nil
}
