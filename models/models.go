// Package models defines the capability contracts shared by the process and observation models.
//
// A model that can be driven by a standard normal variate implements StandardNormalMapping, so
// the same code serves sampling based filters (draw the variate) and moment based filters (push
// sigma points through it). Process and observation models add their dimension queries and the
// condition-then-sample lifecycle on top.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// StandardNormalMapping maps a standard normal variate onto a sample of type S of the
// distribution the model was last conditioned on.
type StandardNormalMapping[S any] interface {
	StandardVariateDimension() int
	MapStandardNormal(noise mat.Vector) (S, error)
}

// ProcessModel propagates a state of type S over an elapsed time, given an input of type U.
// Condition must be called before MapStandardNormal; PredictState does both.
type ProcessModel[S, U any] interface {
	StateDimension() int
	NoiseDimension() int
	InputDimension() int
	Condition(dt float64, state S, input U) error
	PredictState(dt float64, state S, noise mat.Vector, input U) (S, error)
}

// ObservationModel predicts an observation of type O for a state of type S.
type ObservationModel[S, O any] interface {
	ObservationDimension() int
	StateDimension() int
	NoiseDimension() int
	PredictObservation(state S, noise mat.Vector, dt float64) (O, error)
}

// NoInput is the input type of models that take no control input.
type NoInput struct{}
