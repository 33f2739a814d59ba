// SPDX-License-Identifier: MIT
// Package: kernelbp/builder
//
// options.go: functional options for the builder package.
//
// Contract:
//   • Options are functional (type BuilderOption func(*builderConfig)).
//   • Option constructors panic on meaningless inputs (nil funcs).
//     Constructors themselves never panic.
//   • Determinism is explicit: seeding is done via WithSeed.

package builder

import (
	"math/rand"

	"github.com/katalvlaran/kernelbp/core"
)

// defaultSeed keeps unseeded stochastic builders reproducible.
const defaultSeed = 1

// BuilderOption customizes a builderConfig before construction begins.
type BuilderOption func(*builderConfig)

// builderConfig is the resolved, immutable construction configuration.
type builderConfig struct {
	offset core.VertexID
	both   bool
	rng    *rand.Rand
}

func newBuilderConfig(opts ...BuilderOption) builderConfig {
	c := builderConfig{rng: rand.New(rand.NewSource(defaultSeed))}
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// id maps a constructor-local index to a vertex ID.
func (c builderConfig) id(i int) core.VertexID { return c.offset + core.VertexID(i) }

// WithIDOffset numbers vertices from offset instead of 0, so several
// constructors can be composed into one graph without collisions.
func WithIDOffset(offset core.VertexID) BuilderOption {
	return func(c *builderConfig) { c.offset = offset }
}

// WithBothDirections emits v→u alongside every u→v edge. Belief propagation
// on hidden-to-hidden links needs both directions.
func WithBothDirections() BuilderOption {
	return func(c *builderConfig) { c.both = true }
}

// WithSeed seeds the RNG of stochastic constructors.
func WithSeed(seed int64) BuilderOption {
	return func(c *builderConfig) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand provides an explicit RNG. Panics on nil.
func WithRand(r *rand.Rand) BuilderOption {
	if r == nil {
		panic("builder: WithRand(nil)")
	}
	return func(c *builderConfig) { c.rng = r }
}
