// Package simulation drives the motion, occlusion and depth models forward from a seeded noise
// source. It produces synthetic depth observations for a configured scene.
package simulation

import (
	"context"
	"math/rand/v2"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/posetracking/config"
	"go.viam.com/posetracking/logging"
	"go.viam.com/posetracking/observation"
	"go.viam.com/posetracking/process/brownian"
	"go.viam.com/posetracking/process/occlusion"
	"go.viam.com/posetracking/rigidbody"
	"go.viam.com/posetracking/utils"
)

// StepStats summarizes one simulated step.
type StepStats struct {
	Step int
	Time float64
	// Poses holds position and rotation vector of every body.
	Poses []float64
	// DepthMean, DepthStdDev and DepthMedian describe the noisy depth channel over all pixels.
	DepthMean   float64
	DepthStdDev float64
	DepthMedian float64
	// OcclusionMean is the mean occlusion probability over all pixels.
	OcclusionMean float64
	// Renders counts renderer calls since the simulation started.
	Renders int64
}

// Simulator owns one set of models and the evolving scene.
type Simulator struct {
	logger    logging.Logger
	motion    *brownian.MotionModel
	occlusion *occlusion.ContinuousModel
	depth     *observation.DepthModel
	normal    distuv.Normal

	dt     float64
	step   int
	state  *rigidbody.State
	logits []float64
	input  *mat.VecDense
}

// New builds a simulator for cfg. Its noise is drawn from a generator seeded with seed.
func New(cfg *config.Config, seed uint64, logger logging.Logger) (*Simulator, error) {
	motion, err := cfg.Motion.NewModel(logger.Sublogger("motion"))
	if err != nil {
		return nil, errors.Wrap(err, "motion model")
	}
	occ, err := cfg.Occlusion.NewModel(logger.Sublogger("occlusion"))
	if err != nil {
		return nil, errors.Wrap(err, "occlusion model")
	}
	depth, err := cfg.NewDepthModel(logger.Sublogger("depth"))
	if err != nil {
		return nil, errors.Wrap(err, "depth model")
	}
	state, err := cfg.InitialState()
	if err != nil {
		return nil, err
	}
	if cfg.Simulation.DeltaTime <= 0 {
		return nil, utils.NewInvalidArgumentError("time step must be positive, got %v", cfg.Simulation.DeltaTime)
	}

	logits := make([]float64, depth.PixelCount())
	for i := range logits {
		logits[i] = cfg.Occlusion.InitialLogit()
	}
	return &Simulator{
		logger:    logger,
		motion:    motion,
		occlusion: occ,
		depth:     depth,
		normal:    distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)},
		dt:        cfg.Simulation.DeltaTime,
		state:     state,
		logits:    logits,
		input:     mat.NewVecDense(motion.InputDimension(), nil),
	}, nil
}

// State returns the current scene.
func (s *Simulator) State() *rigidbody.State {
	return s.state.Clone()
}

// Logits returns the current occlusion logit of every pixel.
func (s *Simulator) Logits() []float64 {
	return append([]float64(nil), s.logits...)
}

// Step advances the scene by one time step and observes it.
func (s *Simulator) Step() (StepStats, error) {
	next, err := s.motion.PredictState(s.dt, s.state, s.standardNormal(s.motion.NoiseDimension()), s.input)
	if err != nil {
		return StepStats{}, errors.Wrapf(err, "step %d: motion", s.step)
	}
	logits, err := s.occlusion.PredictStates(s.dt, s.logits, s.standardNormal(len(s.logits)).RawVector().Data)
	if err != nil {
		return StepStats{}, errors.Wrapf(err, "step %d: occlusion", s.step)
	}

	poses := next.Poses()
	hypothesis := mat.NewVecDense(len(poses)+len(logits), append(append([]float64(nil), poses...), logits...))
	// every step is a new scene, so earlier renderings can never be hit again
	s.depth.ClearCache()
	obs, err := s.depth.PredictObservation(hypothesis, s.standardNormal(s.depth.NoiseDimension()), s.dt)
	if err != nil {
		return StepStats{}, errors.Wrapf(err, "step %d: observation", s.step)
	}

	s.state, s.logits = next, logits
	s.step++
	return s.summarize(poses, obs)
}

// Run performs steps steps, stopping early when ctx is done.
func (s *Simulator) Run(ctx context.Context, steps int) ([]StepStats, error) {
	out := make([]StepStats, 0, steps)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		st, err := s.Step()
		if err != nil {
			return out, err
		}
		s.logger.Debugw("simulated step", "step", st.Step, "poses", st.Poses,
			"depth_mean", st.DepthMean, "occlusion_mean", st.OcclusionMean)
		out = append(out, st)
	}
	return out, nil
}

func (s *Simulator) standardNormal(n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, s.normal.Rand())
	}
	return v
}

func (s *Simulator) summarize(poses []float64, obs *mat.VecDense) (StepStats, error) {
	depths := make(stats.Float64Data, s.depth.PixelCount())
	for i := range depths {
		depths[i] = obs.AtVec(2 * i)
	}
	mean, err := stats.Mean(depths)
	if err != nil {
		return StepStats{}, err
	}
	sd, err := stats.StandardDeviation(depths)
	if err != nil {
		return StepStats{}, err
	}
	median, err := stats.Median(depths)
	if err != nil {
		return StepStats{}, err
	}
	occ, err := stats.Mean(lo.Map(s.logits, func(l float64, _ int) float64 { return utils.Logistic(l) }))
	if err != nil {
		return StepStats{}, err
	}
	return StepStats{
		Step:          s.step,
		Time:          float64(s.step) * s.dt,
		Poses:         poses,
		DepthMean:     mean,
		DepthStdDev:   sd,
		DepthMedian:   median,
		OcclusionMean: occ,
		Renders:       s.depth.Renders(),
	}, nil
}
