package diag

import (
	"strings"
)

// Bag accumulates diagnostics up to a fixed limit.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag that keeps at most max diagnostics. max <= 0 means
// unbounded.
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends a diagnostic, honoring the limit.
// Returns false if the diagnostic was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Extend adds every diagnostic from ds.
func (b *Bag) Extend(ds []Diagnostic) {
	for _, d := range ds {
		if !b.Add(d) {
			return
		}
	}
}

// Items returns the accumulated diagnostics in insertion order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether at least one diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// ErrorMessages joins the messages of all error-severity diagnostics with
// newlines. The result is deterministic for a given insertion order and is
// what a failed build stores as its failure state.
func (b *Bag) ErrorMessages() string {
	var msgs []string
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			msgs = append(msgs, b.items[i].Message)
		}
	}
	return strings.Join(msgs, "\n")
}
