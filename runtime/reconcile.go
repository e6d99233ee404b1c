package runtime

import (
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/renderparty/vdom"
)

// workUnit is one interruptible step of a render pass: reconcile one
// descriptor against the instance matched to it. Units live only
// within a single pass; a discarded pass drops them wholesale.
type workUnit struct {
	inst *instance
	desc *vdom.Descriptor
}

// renderPass is the work-in-progress generation: an explicit unit
// stack processed in a loop so the scheduler can pause between units
// and abandon the whole pass without touching the committed tree.
type renderPass struct {
	root     *Root
	gen      uint64
	priority Priority
	stack    []*workUnit
	units    int // processed units, for diagnostics
	catches  int // boundary captures, bounded so a crashing fallback terminates
}

func (r *Root) newPass(priority Priority) *renderPass {
	r.gen++
	pass := &renderPass{root: r, gen: r.gen, priority: priority}
	root := r.rootInst
	root.gen = pass.gen
	root.staged = true
	root.rendered = false
	root.created = false
	root.moved = false
	root.deletions = nil
	root.wipChildren = nil
	r.mu.Lock()
	desc := r.desc
	r.mu.Unlock()
	var top []*vdom.Descriptor
	if desc != nil {
		top = []*vdom.Descriptor{desc}
	}
	pass.matchChildren(root, top)
	return pass
}

// step processes one work unit. It returns more=false when the stack
// is drained. A *RenderError or *HookOrderViolation escapes as err,
// together with the instance whose render raised it.
func (pass *renderPass) step() (more bool, failed *instance, err error) {
	n := len(pass.stack)
	if n == 0 {
		return false, nil, nil
	}
	unit := pass.stack[n-1]
	pass.stack = pass.stack[:n-1]
	pass.units++

	defer func() {
		if rec := recover(); rec != nil {
			failed = unit.inst
			switch e := rec.(type) {
			case *HookOrderViolation:
				err = e
			case *RenderError:
				err = e
			default:
				err = &RenderError{Component: unit.inst.name(), Err: recoveredToErr(rec)}
			}
		}
	}()

	pass.process(unit)
	return true, nil, nil
}

func (pass *renderPass) process(unit *workUnit) {
	inst, desc := unit.inst, unit.desc
	inst.lastDesc = desc
	// created and moved were set by the parent's matchChildren and
	// must survive; everything else restages from scratch.
	inst.rendered = false
	inst.staged = false
	inst.deletions = nil
	inst.propsDiff = nil
	inst.textChanged = false
	inst.wipChildren = nil
	inst.wipSlots = nil

	switch inst.kind {
	case vdom.KindText:
		inst.staged = true
		if !inst.created && desc.Text != inst.text {
			inst.textChanged = true
		}
		inst.wipText = desc.Text

	case vdom.KindHost:
		inst.staged = true
		if !inst.created {
			inst.propsDiff = desc.Props.Diff(inst.props)
		}
		inst.wipProps = desc.Props
		pass.matchChildren(inst, desc.Children)

	case vdom.KindFragment, vdom.KindPortal:
		inst.staged = true
		pass.matchChildren(inst, desc.Children)

	case vdom.KindComponent:
		pass.processComponent(inst, desc)
	}
}

func (pass *renderPass) processComponent(inst *instance, desc *vdom.Descriptor) {
	r := pass.root

	if inst.caught != nil {
		// Boundary holding a captured descendant error renders its
		// fallback in place of its normal output. Its own hook slots
		// are left as committed.
		fallback := inst.caughtFallback
		if fallback == nil {
			fallback, _ = inst.boundarySlots(pass.gen)
		}
		if fallback == nil {
			panic(&RenderError{Component: inst.name(), Err: inst.caught})
		}
		inst.staged = true
		pass.matchChildren(inst, childListOf(fallback(inst.caught)))
		return
	}

	pending, childrenClean := r.snapshotPending(inst)

	if !inst.created && childrenClean && len(pending) == 0 &&
		propsShallowEqual(inst.props, desc.Props) {
		// Nothing can have changed below here; reuse the committed
		// subtree untouched.
		inst.staged = false
		return
	}

	if !inst.created && childrenClean && len(pending) > 0 &&
		propsShallowEqual(inst.props, desc.Props) && stateUnchanged(inst, pending) {
		// All queued updates reduce back to the committed values;
		// consume them and skip the render.
		r.consumePending(inst)
		inst.staged = false
		return
	}

	var comp Component
	switch fn := inst.comp.(type) {
	case Component:
		comp = fn
	case func(*Ctx, vdom.Props) *vdom.Descriptor:
		comp = fn
	default:
		panic(&RenderError{Component: inst.name(), Err: errNotAComponent})
	}

	ctx := &Ctx{
		root:        r,
		inst:        inst,
		firstRender: inst.created,
		pending:     pending,
	}
	var out *vdom.Descriptor
	if r.strict {
		// Render twice, discarding the first result, to flush out
		// impure render functions.
		out = comp(ctx, desc.Props)
		ctx.cursor = 0
		ctx.inst.wipSlots = nil
		out = comp(ctx, desc.Props)
	} else {
		out = comp(ctx, desc.Props)
	}
	ctx.finishHooks()

	inst.staged = true
	inst.rendered = true
	inst.wipProps = desc.Props
	pass.matchChildren(inst, childListOf(out))
}

// childListOf normalizes a component's output into a child list.
// Returning a fragment splices its children in directly.
func childListOf(out *vdom.Descriptor) []*vdom.Descriptor {
	if out == nil {
		return nil
	}
	if out.Kind == vdom.KindFragment && !out.HasKey {
		return out.Children
	}
	return []*vdom.Descriptor{out}
}

// matchChildren runs the keyed single-pass child diff: O(n), index
// monotonic, not move optimal under arbitrary permutations. Stable
// unique sibling keys give adjacency-preserving moves; keyless
// children fall back to their position as key.
func (pass *renderPass) matchChildren(parent *instance, newChildren []*vdom.Descriptor) {
	old := parent.children
	oldByKey := make(map[uint64]int, len(old))
	claimed := make([]bool, len(old))
	for i, child := range old {
		oldByKey[child.identity(i)] = i
	}

	seen := mapset.NewThreadUnsafeSet[uint64]()
	lastPlaced := -1
	wip := make([]*instance, 0, len(newChildren))

	for j, desc := range newChildren {
		key := vdom.DescriptorIdentity(desc, strconv.Itoa(j))
		if !seen.Add(key) {
			// Deterministic duplicate handling: the first occurrence
			// already claimed the match; later ones mount fresh.
			// Positional keys are unique per pass, so a collision
			// always carries an explicit key.
			pass.root.warnf("duplicate key %q among siblings of %s", desc.Key, parent.name())
			inst := pass.mountChild(parent, desc)
			wip = append(wip, inst)
			continue
		}

		oldIdx, found := oldByKey[key]
		if found && !claimed[oldIdx] && canReuse(old[oldIdx], desc) {
			claimed[oldIdx] = true
			inst := old[oldIdx]
			inst.gen = pass.gen
			inst.created = false
			if oldIdx < lastPlaced {
				inst.moved = true
			} else {
				inst.moved = false
				lastPlaced = oldIdx
			}
			wip = append(wip, inst)
			pass.push(&workUnit{inst: inst, desc: desc})
			continue
		}

		inst := pass.mountChild(parent, desc)
		wip = append(wip, inst)
	}

	for i, child := range old {
		if !claimed[i] {
			parent.deletions = append(parent.deletions, child)
		}
	}
	parent.wipChildren = wip
}

func (pass *renderPass) mountChild(parent *instance, desc *vdom.Descriptor) *instance {
	inst := newInstance(desc)
	inst.parent = parent
	inst.gen = pass.gen
	inst.created = true
	inst.moved = false
	pass.push(&workUnit{inst: inst, desc: desc})
	return inst
}

func (pass *renderPass) push(unit *workUnit) {
	pass.stack = append(pass.stack, unit)
}

// canReuse implements the type mismatch rule: differing kinds or types
// never diff across the boundary, the old subtree remounts fresh. An
// instance whose host creation failed never matches again, so the
// create is retried instead of updating a node that does not exist.
func canReuse(inst *instance, d *vdom.Descriptor) bool {
	if inst.dead || inst.kind != d.Kind {
		return false
	}
	switch d.Kind {
	case vdom.KindHost:
		return inst.tag == d.Tag
	case vdom.KindComponent:
		return inst.compID == d.CompID
	case vdom.KindPortal:
		// SameValue rather than == so an uncomparable HostNode
		// implementation degrades to a remount instead of a panic
		return vdom.SameValue(inst.portal, d.PortalTarget)
	default:
		return true
	}
}

func propsShallowEqual(a, b vdom.Props) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !vdom.SameValue(av, bv) {
			return false
		}
	}
	return true
}

// stateUnchanged folds the queued updates per state slot and reports
// whether every final value lands shallow-equal to the committed one.
func stateUnchanged(inst *instance, pending []pendingUpdate) bool {
	for i := range inst.slots {
		if inst.slots[i].kind != slotState {
			continue
		}
		v := inst.slots[i].state
		for _, u := range pending {
			if u.slot == i {
				v = u.apply(v)
			}
		}
		if !vdom.SameValue(v, inst.slots[i].state) {
			return false
		}
	}
	return true
}
