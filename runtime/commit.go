package runtime

import (
	"github.com/delaneyj/renderparty/vdom"
)

// commitPass applies every staged mutation of the finished pass in one
// synchronous, non-interruptible sweep, then runs layout effects. The
// host tree is never observed in a partially updated state because no
// adapter call happens outside this step. An adapter failure with no
// boundary above it makes the whole commit fatal: the entire visible
// tree comes down rather than staying half mutated.
func (r *Root) commitPass(pass *renderPass) error {
	r.state = stateCommitting
	r.commitErr = nil
	r.commitNode(r.rootInst, r.container, nil, pass.gen)
	if err := r.commitErr; err != nil {
		r.commitErr = nil
		r.state = stateIdle
		return r.fatal(err)
	}
	layout := r.layoutQueue
	r.layoutQueue = nil
	for _, run := range layout {
		r.invokeEffect(run)
	}
	r.state = stateIdle
	return nil
}

// commitNode walks the work-in-progress tree right to left so each
// placement has its next sibling's host node available as the
// insertBefore anchor. It returns the subtree's leftmost host node,
// which becomes the anchor for the preceding sibling.
func (r *Root) commitNode(inst *instance, container, anchor HostNode, gen uint64) HostNode {
	if inst.gen != gen {
		// untouched subtree, contributes only its anchor
		if h := inst.firstHostNode(gen); h != nil {
			return h
		}
		return anchor
	}

	switch inst.kind {
	case vdom.KindText:
		r.commitText(inst, container, anchor)
		return inst.host

	case vdom.KindHost:
		r.commitHost(inst, container, anchor, gen)
		return inst.host

	case vdom.KindPortal:
		if inst.staged {
			r.commitDeletions(inst, inst.portal)
			r.commitChildren(inst.wipChildren, inst.portal, nil, gen)
			inst.children = inst.wipChildren
		}
		r.finalize(inst)
		// portal children render elsewhere; invisible to siblings
		return anchor

	default: // fragment, component
		if !inst.staged {
			// bailed out; may still have been reordered as a block
			if inst.moved {
				anchor = r.place(inst, container, anchor, gen)
			} else if h := inst.firstHostNode(gen); h != nil {
				anchor = h
			}
			r.finalizeShallow(inst)
			return anchor
		}
		r.commitDeletions(inst, container)
		a := r.commitChildren(inst.wipChildren, container, anchor, gen)
		if inst.moved {
			a = r.place(inst, container, anchor, gen)
		}
		if inst.kind == vdom.KindComponent {
			inst.props = inst.wipProps
			if inst.rendered {
				r.commitSlots(inst)
			} else {
				// fallback render of a caught boundary
				r.clearQueued(inst)
			}
		}
		inst.children = inst.wipChildren
		r.finalize(inst)
		return a
	}
}

func (r *Root) commitText(inst *instance, container, anchor HostNode) {
	if inst.created {
		h, err := r.adapter.CreateTextInstance(inst.wipText)
		if r.adapterErr(inst, "createText", err) {
			inst.dead = true
			r.finalizeShallow(inst)
			return
		}
		inst.host = h
		r.hostInsert(inst, container, h, anchor)
	} else {
		if inst.textChanged {
			err := r.adapter.CommitTextUpdate(inst.host, inst.wipText)
			r.adapterErr(inst, "textUpdate", err)
		}
		if inst.moved {
			r.hostInsert(inst, container, inst.host, anchor)
		}
	}
	inst.text = inst.wipText
	r.finalize(inst)
}

func (r *Root) commitHost(inst *instance, container, anchor HostNode, gen uint64) {
	if inst.created {
		h, err := r.adapter.CreateHostInstance(inst.tag, inst.wipProps)
		if r.adapterErr(inst, "create", err) {
			// the staged subtree below is never committed; the husk
			// stays childless and is skipped by canReuse
			inst.dead = true
			r.finalizeShallow(inst)
			return
		}
		inst.host = h
		r.commitChildren(inst.wipChildren, h, nil, gen)
		r.hostInsert(inst, container, h, anchor)
	} else {
		if inst.moved {
			r.hostInsert(inst, container, inst.host, anchor)
		}
		if len(inst.propsDiff) > 0 {
			err := r.adapter.CommitPropsUpdate(inst.host, inst.propsDiff)
			r.adapterErr(inst, "propsUpdate", err)
		}
		if inst.staged {
			r.commitDeletions(inst, inst.host)
			r.commitChildren(inst.wipChildren, inst.host, nil, gen)
		}
	}
	inst.props = inst.wipProps
	inst.children = inst.wipChildren
	r.finalize(inst)
}

// commitChildren walks a child list right to left so every placement
// has its next sibling's host node as the insertBefore anchor. Effects
// enqueued during the walk end up in reverse sibling order, so the
// freshly appended queue tails are restored to document order before
// returning. Returns the leftmost host node of the list.
func (r *Root) commitChildren(kids []*instance, container, anchor HostNode, gen uint64) HostNode {
	switch len(kids) {
	case 0:
		return anchor
	case 1:
		return r.commitNode(kids[0], container, anchor, gen)
	}
	lspans := make([][2]int, len(kids))
	pspans := make([][2]int, len(kids))
	a := anchor
	for i := len(kids) - 1; i >= 0; i-- {
		l0, p0 := len(r.layoutQueue), len(r.passiveQueue)
		a = r.commitNode(kids[i], container, a, gen)
		lspans[i] = [2]int{l0, len(r.layoutQueue)}
		pspans[i] = [2]int{p0, len(r.passiveQueue)}
	}
	r.layoutQueue = reorderTail(r.layoutQueue, lspans)
	r.passiveQueue = reorderTail(r.passiveQueue, pspans)
	return a
}

// reorderTail rebuilds the queue tail from the per-child spans so the
// runs appear in child order. Spans are contiguous and cover the whole
// tail; a span's runs are already internally ordered.
func reorderTail(queue []effectRun, spans [][2]int) []effectRun {
	base := len(queue)
	for _, s := range spans {
		if s[0] < base {
			base = s[0]
		}
	}
	if base == len(queue) {
		return queue
	}
	tail := make([]effectRun, 0, len(queue)-base)
	for _, s := range spans {
		tail = append(tail, queue[s[0]:s[1]]...)
	}
	return append(queue[:base], tail...)
}

// place re-attaches every top-level host node of a subtree at anchor,
// right to left, relocating an already committed block.
func (r *Root) place(inst *instance, container, anchor HostNode, gen uint64) HostNode {
	switch inst.kind {
	case vdom.KindHost, vdom.KindText:
		if inst.host == nil {
			return anchor
		}
		r.hostInsert(inst, container, inst.host, anchor)
		return inst.host
	case vdom.KindPortal:
		return anchor
	default:
		kids := inst.effectiveChildren(gen)
		a := anchor
		for i := len(kids) - 1; i >= 0; i-- {
			a = r.place(kids[i], container, a, gen)
		}
		return a
	}
}

func (r *Root) hostInsert(inst *instance, container, child, anchor HostNode) {
	var err error
	op := "append"
	if anchor != nil {
		op = "insertBefore"
		err = r.adapter.InsertBefore(container, child, anchor)
	} else {
		err = r.adapter.AppendChild(container, child)
	}
	if err != nil {
		r.adapterErr(inst, op, err)
	}
}

func (r *Root) commitDeletions(inst *instance, container HostNode) {
	for _, dead := range inst.deletions {
		r.teardown(dead, container, true)
	}
	inst.deletions = nil
}

// teardown destroys a committed subtree: cleanups run parent first,
// each slot's last cleanup exactly once, then host nodes detach. Host
// removal stops at the subtree's top host nodes; portal children are
// removed from their own containers since those outlive the subtree.
func (r *Root) teardown(inst *instance, container HostNode, removeHosts bool) {
	if inst.kind == vdom.KindComponent {
		r.runUnmountCleanups(inst)
		r.clearQueued(inst)
	}
	switch inst.kind {
	case vdom.KindHost, vdom.KindText:
		if removeHosts && inst.host != nil {
			err := r.adapter.RemoveChild(container, inst.host)
			r.adapterErr(inst, "remove", err)
		}
		for _, child := range inst.children {
			r.teardown(child, inst.host, false)
		}
	case vdom.KindPortal:
		for _, child := range inst.children {
			r.teardown(child, inst.portal, true)
		}
	default:
		for _, child := range inst.children {
			r.teardown(child, container, removeHosts)
		}
	}
}

func (r *Root) runUnmountCleanups(inst *instance) {
	for i := range inst.slots {
		rec := inst.slots[i].effect
		if rec == nil || rec.cleanup == nil {
			continue
		}
		cleanup := rec.cleanup
		rec.cleanup = nil
		rec.pendingCreate = false
		r.guardEffect(inst, cleanup)
	}
}

// commitSlots flips the instance's hook double buffer and decides which
// effect slots fire, comparing dependency snapshots against the
// previous render.
func (r *Root) commitSlots(inst *instance) {
	old := inst.slots
	next := inst.wipSlots
	for i := range next {
		s := &next[i]
		if s.kind != slotEffect && s.kind != slotLayoutEffect {
			continue
		}
		rec := s.effect
		var prev *effectRecord
		if i < len(old) {
			prev = old[i].effect
		}
		if prev != nil && rec.hasDeps && prev.hasDeps && depsEqual(prev.deps, rec.deps) {
			// unchanged deps: keep the previous cleanup, skip create
			rec.cleanup = prev.cleanup
			rec.pendingCreate = false
			continue
		}
		if prev != nil {
			rec.cleanup = prev.cleanup
		}
		rec.pendingCreate = true
		run := effectRun{inst: inst, slot: i}
		if rec.layout {
			r.layoutQueue = append(r.layoutQueue, run)
		} else {
			r.passiveQueue = append(r.passiveQueue, run)
		}
	}
	inst.slots = next
	inst.wipSlots = nil
	r.consumeApplied(inst)
}

func (inst *instance) resetStaging() {
	inst.created = false
	inst.moved = false
	inst.staged = false
	inst.rendered = false
	inst.textChanged = false
	inst.propsDiff = nil
	inst.wipChildren = nil
	inst.wipProps = nil
}

func (r *Root) finalize(inst *instance) {
	// parent rewiring happens under mu because setters on other
	// goroutines walk these pointers when marking ancestors dirty
	r.mu.Lock()
	for _, child := range inst.children {
		child.parent = inst
	}
	r.mu.Unlock()
	inst.resetStaging()
}

func (r *Root) finalizeShallow(inst *instance) {
	inst.resetStaging()
}

// adapterErr wraps a host failure as a CommitError and arms the
// nearest boundary so the next pass swaps the damaged subtree for its
// fallback. With no boundary above, the error is stashed for
// commitPass to turn fatal once the walk finishes.
func (r *Root) adapterErr(inst *instance, op string, err error) bool {
	if err == nil {
		return false
	}
	ce := &CommitError{Op: op, Err: err}
	b, fallback, reporter := r.findBoundary(inst.parent, r.gen)
	if b == nil {
		if r.state == stateCommitting {
			if r.commitErr == nil {
				r.commitErr = ce
			}
		} else if r.onUncaught != nil {
			// teardown outside a commit has nothing left to unwind
			r.onUncaught(ce)
		}
		return true
	}
	if r.onUncaught != nil {
		r.onUncaught(ce)
	}
	b.caught = ce
	b.caughtFallback = fallback
	if reporter != nil {
		reporter(ce)
	}
	r.mu.Lock()
	b.markDirty()
	r.needsRender = true
	if r.pendingPriority < PrioritySync {
		r.pendingPriority = PrioritySync
	}
	r.mu.Unlock()
	return true
}
