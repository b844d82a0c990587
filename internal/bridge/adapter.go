package bridge

import (
	"context"
	"fmt"

	"forge/internal/loader"
)

// ForeignLoader is a chain step executed by the external worker. One
// adapter may stand in for a whole collapsed chain; its identifier is then
// the '$'-joined identifiers of the original steps.
type ForeignLoader struct {
	conduit    Conduit
	identifier string
}

// NewForeignLoader binds an identifier to the call channel.
func NewForeignLoader(conduit Conduit, identifier string) *ForeignLoader {
	return &ForeignLoader{conduit: conduit, identifier: identifier}
}

func (l *ForeignLoader) Identifier() string {
	return l.identifier
}

// Pitch serializes the context and lets the worker run its pitch phase.
// When the worker reports it already fell through to the normal phase (its
// pitching did not fully short-circuit), the current native step is marked
// normal-executed so the native normal-phase pass does not run it twice.
func (l *ForeignLoader) Pitch(ctx context.Context, lc *loader.Context) error {
	wc, err := snapshotContext(lc, l.identifier, true)
	if err != nil {
		return err
	}
	result, err := l.conduit.Call(ctx, wc)
	if err != nil {
		return fmt.Errorf("failed to call loader %s: %w", l.identifier, err)
	}
	if result == nil {
		return nil
	}
	if !result.IsPitching {
		lc.CurrentLoader().SetNormalExecuted()
	}
	return applyResult(result, lc)
}

// Run serializes the context and lets the worker run the normal phase.
func (l *ForeignLoader) Run(ctx context.Context, lc *loader.Context) error {
	wc, err := snapshotContext(lc, l.identifier, false)
	if err != nil {
		return err
	}
	result, err := l.conduit.Call(ctx, wc)
	if err != nil {
		return fmt.Errorf("failed to call loader %s: %w", l.identifier, err)
	}
	if result == nil {
		return nil
	}
	return applyResult(result, lc)
}
