// Package sampler implements a random-walk Metropolis sampler whose step
// function plugs into scan.Run.
package sampler

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
)

// ErrInvalidStepSize is returned for a non-positive or non-finite step size.
var ErrInvalidStepSize = errors.New("step size must be positive and finite")

// LogDensity returns the unnormalised log density of the target at x.
type LogDensity func(x float64) float64

// StandardNormal is the log density of N(0, 1) up to a constant.
func StandardNormal(x float64) float64 { return -0.5 * x * x }

// State is the carry threaded through a chain.
type State struct {
	X          float64
	LogDensity float64
}

// Sample is the per-step output of a chain.
type Sample struct {
	X        float64
	Accepted bool
}

// Chain draws samples for one lane. A Chain is not safe for concurrent use;
// give every lane its own.
type Chain struct {
	logp LogDensity
	step float64
	rng  *rand.Rand
}

// NewChain returns a chain seeded from (seed, lane), so lanes sharing a
// seed still draw independent streams.
func NewChain(logp LogDensity, stepSize float64, seed uint64, lane int) (*Chain, error) {
	if !(stepSize > 0) || math.IsInf(stepSize, 0) {
		return nil, ErrInvalidStepSize
	}
	return &Chain{
		logp: logp,
		step: stepSize,
		rng:  rand.New(rand.NewPCG(seed, uint64(lane))), //nolint:gosec // sampling, not crypto
	}, nil
}

// Init returns the starting state at x.
func (c *Chain) Init(x float64) State {
	return State{X: x, LogDensity: c.logp(x)}
}

// Step proposes x' = x + step*N(0,1) and accepts it with probability
// min(1, p(x')/p(x)). The iteration number is unused by the kernel.
func (c *Chain) Step(_ context.Context, s State, _ int) (State, Sample, error) {
	x := s.X + c.step*c.rng.NormFloat64()
	lp := c.logp(x)
	if math.Log(c.rng.Float64()) < lp-s.LogDensity {
		return State{X: x, LogDensity: lp}, Sample{X: x, Accepted: true}, nil
	}
	return s, Sample{X: s.X}, nil
}

// Summary describes a finished chain.
type Summary struct {
	N        int
	Accepted int
	Mean     float64
	Variance float64
}

// Acceptance returns the fraction of accepted proposals.
func (s Summary) Acceptance() float64 {
	if s.N == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.N)
}

// Summarize computes the acceptance count, mean and variance of samples.
func Summarize(samples []Sample) Summary {
	sum := Summary{N: len(samples)}
	if sum.N == 0 {
		return sum
	}
	// Welford's running mean/variance.
	var m2 float64
	for i, s := range samples {
		if s.Accepted {
			sum.Accepted++
		}
		d := s.X - sum.Mean
		sum.Mean += d / float64(i+1)
		m2 += d * (s.X - sum.Mean)
	}
	if sum.N > 1 {
		sum.Variance = m2 / float64(sum.N-1)
	}
	return sum
}
