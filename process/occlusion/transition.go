// Package occlusion propagates per-pixel occlusion beliefs. A belief is kept as a logit so that
// Gaussian filters can treat it as an unconstrained quantity.
package occlusion

import (
	"math"

	"go.viam.com/posetracking/utils"
)

// TransitionModel is a two-state (visible, occluded) Markov chain defined by its transition
// probabilities over one unit of time, extrapolated to arbitrary elapsed times.
type TransitionModel struct {
	pOccludedGivenVisible  float64
	pOccludedGivenOccluded float64

	// p(dt) = stationary + decay^dt * (p - stationary)
	decay      float64
	stationary float64

	probability float64
}

// NewTransitionModel returns a chain with the given one-step probabilities of being occluded.
// pOccludedGivenOccluded must exceed pOccludedGivenVisible.
func NewTransitionModel(pOccludedGivenVisible, pOccludedGivenOccluded float64) (*TransitionModel, error) {
	if !isProbability(pOccludedGivenVisible) || !isProbability(pOccludedGivenOccluded) {
		return nil, utils.NewInvalidArgumentError("transition probabilities must lie in [0, 1], got %v and %v",
			pOccludedGivenVisible, pOccludedGivenOccluded)
	}
	decay := pOccludedGivenOccluded - pOccludedGivenVisible
	if decay <= 0 {
		return nil, utils.NewInvalidArgumentError(
			"p(occluded | occluded) %v must exceed p(occluded | visible) %v",
			pOccludedGivenOccluded, pOccludedGivenVisible)
	}
	tm := &TransitionModel{
		pOccludedGivenVisible:  pOccludedGivenVisible,
		pOccludedGivenOccluded: pOccludedGivenOccluded,
		decay:                  decay,
	}
	if decay < 1 {
		tm.stationary = pOccludedGivenVisible / (1 - decay)
	}
	return tm, nil
}

// Probabilities returns the one-step transition probabilities.
func (tm *TransitionModel) Probabilities() (float64, float64) {
	return tm.pOccludedGivenVisible, tm.pOccludedGivenOccluded
}

// Stationary returns the probability the chain settles at.
func (tm *TransitionModel) Stationary() float64 {
	if tm.decay == 1 {
		return math.NaN()
	}
	return tm.stationary
}

// Propagate returns the probability of being occluded dt after being occluded with
// probability p.
func (tm *TransitionModel) Propagate(dt, p float64) float64 {
	if tm.decay == 1 {
		return p
	}
	return tm.stationary + math.Pow(tm.decay, dt)*(p-tm.stationary)
}

// Condition sets the occlusion probability p at the start of a step of dt.
func (tm *TransitionModel) Condition(dt, p float64) error {
	if !utils.IsFinite(dt) || dt < 0 {
		return utils.NewInvalidArgumentError("elapsed time must be finite and non-negative, got %v", dt)
	}
	if !isProbability(p) {
		return utils.NewNumericDivergenceError("occlusion probability %v", p)
	}
	tm.probability = tm.Propagate(dt, p)
	return nil
}

// Sample returns the marginal probability of being occluded at the end of the conditioned step.
// The chain is collapsed onto its marginal, so the draw is the propagated probability itself.
func (tm *TransitionModel) Sample() (float64, error) {
	if !isProbability(tm.probability) {
		return 0, utils.NewNumericDivergenceError("propagated occlusion probability %v", tm.probability)
	}
	return tm.probability, nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}
