// Package loader implements the transform-chain execution engine: the
// two-phase pitch/run protocol over an ordered chain of transform steps
// bound to one module.
package loader

import (
	"context"
)

// Loader is one transform step. Pitch runs outside-in and may short-circuit
// the rest of the chain by producing content; Run transforms the content
// produced so far, inside-out.
type Loader interface {
	Identifier() string
	Pitch(ctx context.Context, lc *Context) error
	Run(ctx context.Context, lc *Context) error
}

// Item binds a loader into one module's chain together with its execution
// state. Items are owned by exactly one chain: loaders may be shared, items
// never are.
type Item struct {
	Loader Loader
	// InlineOrigin marks steps written with '!' syntax in the request.
	InlineOrigin bool

	normalExecuted bool
}

// Identifier returns the bound loader's identifier.
func (it *Item) Identifier() string {
	return it.Loader.Identifier()
}

// SetNormalExecuted marks the step's normal phase as already run, so a later
// native normal-phase pass skips it. Used when a cross-runtime pitch call
// reports that the foreign side already executed this step's transform.
func (it *Item) SetNormalExecuted() {
	it.normalExecuted = true
}

// NormalExecuted reports whether the normal phase already ran for this step.
func (it *Item) NormalExecuted() bool {
	return it.normalExecuted
}

// Chain is the ordered transform steps of one module. Once the
// loader-selection policy has run it is immutable for the rest of the build.
type Chain []*Item

// NewChain wraps loaders into fresh items.
func NewChain(loaders ...Loader) Chain {
	items := make(Chain, len(loaders))
	for i, l := range loaders {
		items[i] = &Item{Loader: l}
	}
	return items
}

// Identifiers lists the step identifiers in chain order.
func (c Chain) Identifiers() []string {
	ids := make([]string, len(c))
	for i, it := range c {
		ids[i] = it.Identifier()
	}
	return ids
}
