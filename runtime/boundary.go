package runtime

import (
	"github.com/delaneyj/renderparty/vdom"
)

// findBoundary walks the ancestor chain (never sideways) from the
// given instance to the nearest component that declared a recovery
// hook and is not already showing its fallback.
func (r *Root) findBoundary(from *instance, gen uint64) (*instance, func(error) *vdom.Descriptor, func(error)) {
	for p := from; p != nil; p = p.parent {
		if p.kind != vdom.KindComponent || p.caught != nil {
			continue
		}
		fallback, reporter := p.boundarySlots(gen)
		if fallback != nil {
			return p, fallback, reporter
		}
	}
	return nil, nil, nil
}

// captureInPass handles a failed render unit without abandoning the
// pass: the nearest ancestor boundary is armed with the error, every
// queued unit inside its subtree is pruned, and the boundary unit is
// re-queued so it renders its fallback against its committed children.
// Returns false when no boundary exists up to the root.
func (r *Root) captureInPass(pass *renderPass, failed *instance, err error) bool {
	var from *instance
	if failed != nil {
		from = failed.parent
	}
	b, fallback, reporter := r.findBoundary(from, pass.gen)
	if b == nil {
		return false
	}
	b.caught = err
	b.caughtFallback = fallback
	if reporter != nil {
		reporter(err)
	}

	kept := pass.stack[:0]
	for _, unit := range pass.stack {
		if !hasAncestor(unit.inst, b) {
			kept = append(kept, unit)
		}
	}
	pass.stack = kept
	pass.push(&workUnit{inst: b, desc: b.lastDesc})
	return true
}

func hasAncestor(inst, ancestor *instance) bool {
	for p := inst; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// fatal removes the entire visible tree rather than leaving a
// partially mutated host on screen, then hands the error to the host.
func (r *Root) fatal(err error) error {
	for _, child := range r.rootInst.children {
		r.teardown(child, r.container, true)
	}
	r.rootInst.children = nil
	r.passiveQueue = nil
	r.layoutQueue = nil
	r.mu.Lock()
	r.needsRender = false
	r.pendingPriority = PriorityIdle
	r.mu.Unlock()
	if r.onUncaught != nil {
		r.onUncaught(err)
	}
	return err
}
