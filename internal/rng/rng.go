// Package rng implements the engine's deterministic random stream: a
// 32-bit xorshift generator feeding a Box-Muller normal transform. Every
// stochastic component (the macro-market model, seasoned-portfolio
// generation) owns its own Source rather than reaching for a package-level
// generator, so two simulations can run concurrently without sharing
// mutable state. The transition function is a fixed bit-twiddling
// algorithm, not a design choice open to substitution: two conforming
// implementations seeded identically must produce an identical stream.
package rng

import "math"

// zeroStateSubstitute is used whenever the xorshift state would otherwise
// become zero, which is an absorbing (and therefore forbidden) state for
// xorshift.
const zeroStateSubstitute uint32 = 0x6d2b79f5

// Source is a seeded, stateful random source. It is not safe for
// concurrent use — each simulation step owns its own Source.
type Source struct {
	state uint32
}

// New creates a Source from a 32-bit seed, treated as the initial state.
// A zero seed (or a seed that would otherwise produce a zero state) is
// substituted per the xorshift absorbing-state rule.
func New(seed int32) *Source {
	s := &Source{state: uint32(seed)}
	if s.state == 0 {
		s.state = zeroStateSubstitute
	}
	return s
}

// NewFromState resumes a Source from a previously-saved state (e.g. the
// macro model's carried-forward MacroModelState.RNGSeed), so successive
// steps continue the same stream rather than restarting it.
func NewFromState(state uint32) *Source {
	s := &Source{state: state}
	if s.state == 0 {
		s.state = zeroStateSubstitute
	}
	return s
}

// State returns the generator's current internal state, for callers that
// need to persist it (the macro model writes this back into
// MacroModelState.RNGSeed after every advance).
func (s *Source) State() uint32 { return s.state }

// next advances the xorshift transition and returns the new state.
func (s *Source) next() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	return x
}

// Uniform returns a uniformly distributed float64 in [0, 1).
func (s *Source) Uniform() float64 {
	return float64(s.next()) / 4294967296.0 // 2^32
}

// Normal returns a standard-normal draw via Box-Muller, redrawing u1 until
// it is strictly positive to avoid log(0).
func (s *Source) Normal() float64 {
	var u1 float64
	for {
		u1 = s.Uniform()
		if u1 > 0 {
			break
		}
	}
	u2 := s.Uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
