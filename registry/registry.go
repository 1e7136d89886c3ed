// Package registry implements the callback dispatch table the element
// parser drives: a mapping from DICOM (group,element) tags to an ordered
// list of callbacks, plus a single default-callback slot.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/practical-imaging/dicomindex/types"
)

// Callback receives one fully-decoded element. value is the raw element
// bytes; callbacks that need a typed value decode it themselves via the
// dicom package's ValueDecoder functions. Callbacks must not retain value
// beyond the call — the parser may reuse the backing buffer for the next
// element.
type Callback func(tag types.Tag, vr string, value []byte)

// Registry is a (group,element) -> ordered callback list dispatcher.
// Structurally it mirrors a command router: register, look up, route, with
// a structured-logging trace of each dispatch, keyed on DICOM tags and
// fanning out to every registered callback instead of exactly one handler.
type Registry struct {
	callbacks map[types.Tag][]Callback
	def       Callback
}

// New creates an empty registry. Use Register to add tag callbacks and
// RegisterDefault to set the fallback slot.
func New() *Registry {
	return &Registry{callbacks: make(map[types.Tag][]Callback)}
}

// Register appends a callback to the list for a tag. Delivery order within
// a tag is registration order; removing callbacks is not supported.
func (r *Registry) Register(tag types.Tag, cb Callback) {
	r.callbacks[tag] = append(r.callbacks[tag], cb)
}

// RegisterDefault sets the callback invoked when an element's tag has no
// registered callbacks. There is one default slot; calling this again
// replaces it.
func (r *Registry) RegisterDefault(cb Callback) {
	r.def = cb
}

// HasCallback reports whether any callback (specific or default) will fire
// for the given tag.
func (r *Registry) HasCallback(tag types.Tag) bool {
	return len(r.callbacks[tag]) > 0 || r.def != nil
}

// Dispatch routes one decoded element to every callback registered for its
// tag, in registration order, falling back to the default callback when the
// tag has none registered.
func (r *Registry) Dispatch(ctx context.Context, tag types.Tag, vr string, value []byte) {
	cbs, ok := r.callbacks[tag]
	if !ok || len(cbs) == 0 {
		if r.def != nil {
			slog.DebugContext(ctx, "dispatching to default callback",
				"tag", fmt.Sprintf("%04x,%04x", tag.Group, tag.Element), "vr", vr)
			r.def(tag, vr, value)
		}
		return
	}
	slog.DebugContext(ctx, "dispatching element",
		"tag", fmt.Sprintf("%04x,%04x", tag.Group, tag.Element), "vr", vr, "callbacks", len(cbs))
	for _, cb := range cbs {
		cb(tag, vr, value)
	}
}

// RegisteredTags returns every tag with at least one specific callback
// registered.
func (r *Registry) RegisteredTags() []types.Tag {
	tags := make([]types.Tag, 0, len(r.callbacks))
	for t := range r.callbacks {
		tags = append(tags, t)
	}
	return tags
}
