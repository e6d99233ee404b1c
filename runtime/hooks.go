package runtime

import (
	"github.com/delaneyj/renderparty/vdom"
)

// Component is the render function backing a KindComponent descriptor.
// It must be free of externally observable side effects: the scheduler
// may invoke it more than once for the same logical update, and twice
// per pass in strict mode.
type Component func(ctx *Ctx, props vdom.Props) *vdom.Descriptor

// Ctx is the current-render context threaded into a component by the
// scheduler for exactly the duration of that render call. Hook calls
// address their slots through it positionally, which is why every
// render of an instance must read the same hooks in the same order.
type Ctx struct {
	root        *Root
	inst        *instance
	cursor      int
	firstRender bool
	pending     []pendingUpdate
}

func (ctx *Ctx) nextSlot(kind slotKind) (*slot, int) {
	i := ctx.cursor
	ctx.cursor++
	inst := ctx.inst
	if ctx.firstRender {
		inst.wipSlots = append(inst.wipSlots, slot{kind: kind})
		return &inst.wipSlots[i], i
	}
	if i >= len(inst.slots) {
		panic(&HookOrderViolation{Component: inst.name(), Slot: i, Got: kind.String()})
	}
	prev := inst.slots[i]
	if prev.kind != kind {
		panic(&HookOrderViolation{Component: inst.name(), Slot: i, Prev: prev.kind.String(), Got: kind.String()})
	}
	inst.wipSlots = append(inst.wipSlots, prev)
	return &inst.wipSlots[i], i
}

// finishHooks runs after the component body returns and catches the
// other half of the order invariant: reading fewer hooks than before.
func (ctx *Ctx) finishHooks() {
	if ctx.firstRender {
		return
	}
	if ctx.cursor < len(ctx.inst.slots) {
		missing := ctx.inst.slots[ctx.cursor]
		panic(&HookOrderViolation{Component: ctx.inst.name(), Slot: ctx.cursor, Prev: missing.kind.String()})
	}
}

// Setter enqueues state updates for one state slot. Set and Update
// never mutate the slot synchronously; they queue the payload and
// schedule a re-render, so reads in the same task keep seeing the
// committed value.
type Setter[T any] struct {
	root *Root
	inst *instance
	slot int
}

func (s Setter[T]) Set(v T) {
	s.root.enqueueUpdate(s.inst, s.slot, func(any) any { return v })
}

func (s Setter[T]) Update(fn func(prev T) T) {
	s.root.enqueueUpdate(s.inst, s.slot, func(prev any) any { return fn(prev.(T)) })
}

// UseState declares a state slot. The initial value is only consulted
// on the instance's first render.
func UseState[T any](ctx *Ctx, initial T) (T, Setter[T]) {
	s, i := ctx.nextSlot(slotState)
	if ctx.firstRender {
		s.state = initial
	} else {
		s.state = ctx.reduceState(i, s.state)
	}
	return s.state.(T), Setter[T]{ctx.root, ctx.inst, i}
}

// UseStateFunc is UseState with a lazily computed initial value; the
// thunk runs once, on first render.
func UseStateFunc[T any](ctx *Ctx, initial func() T) (T, Setter[T]) {
	s, i := ctx.nextSlot(slotState)
	if ctx.firstRender {
		s.state = initial()
	} else {
		s.state = ctx.reduceState(i, s.state)
	}
	return s.state.(T), Setter[T]{ctx.root, ctx.inst, i}
}

// reduceState folds the queued updates for one slot, in enqueue order,
// over the committed value.
func (ctx *Ctx) reduceState(slotIdx int, committed any) any {
	v := committed
	for _, u := range ctx.pending {
		if u.slot == slotIdx {
			v = u.apply(v)
		}
	}
	return v
}

// UseEffect declares a passive effect slot. deps semantics follow the
// dependency-array contract: nil deps re-runs after every commit, an
// empty non-nil slice runs once, otherwise the effect re-runs only
// when some element differs shallowly from the previous snapshot.
// Running means previous cleanup first, then create; create's return
// value is retained as the next cleanup.
func UseEffect(ctx *Ctx, create func() func(), deps []any) {
	s, _ := ctx.nextSlot(slotEffect)
	s.effect = &effectRecord{create: create, deps: deps, hasDeps: deps != nil}
}

// UseLayoutEffect is UseEffect but runs synchronously at the end of
// commit, before control returns to the host driver.
func UseLayoutEffect(ctx *Ctx, create func() func(), deps []any) {
	s, _ := ctx.nextSlot(slotLayoutEffect)
	s.effect = &effectRecord{create: create, deps: deps, hasDeps: deps != nil, layout: true}
}

// UseMemo declares a memo slot: compute runs on first render and
// whenever deps change shallowly; otherwise the cached value returns.
func UseMemo[T any](ctx *Ctx, compute func() T, deps []any) T {
	s, _ := ctx.nextSlot(slotMemo)
	if ctx.firstRender || !depsEqual(s.memoDeps, deps) {
		s.memo = compute()
		s.memoDeps = deps
	}
	return s.memo.(T)
}

// UseErrorBoundary opts the instance in as an error boundary. fallback
// receives a descendant's RenderError or CommitError and returns the
// descriptor that replaces the crashed subtree's output.
func UseErrorBoundary(ctx *Ctx, fallback func(error) *vdom.Descriptor) {
	s, _ := ctx.nextSlot(slotBoundary)
	s.boundary = fallback
}

// UseErrorReporter registers a side-effecting reporter invoked when
// this instance's boundary catches a descendant error.
func UseErrorReporter(ctx *Ctx, report func(error)) {
	s, _ := ctx.nextSlot(slotReporter)
	s.reporter = report
}

// depsEqual: nil on either side means "always differ".
func depsEqual(prev, next []any) bool {
	if prev == nil || next == nil {
		return false
	}
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if !vdom.SameValue(prev[i], next[i]) {
			return false
		}
	}
	return true
}

// boundarySlots returns the fallback and reporter for the generation's
// visible slot array, or nil when the instance is not a boundary.
func (inst *instance) boundarySlots(gen uint64) (func(error) *vdom.Descriptor, func(error)) {
	slots := inst.slots
	if inst.gen == gen && inst.rendered {
		slots = inst.wipSlots
	}
	var fallback func(error) *vdom.Descriptor
	var reporter func(error)
	for i := range slots {
		switch slots[i].kind {
		case slotBoundary:
			fallback = slots[i].boundary
		case slotReporter:
			reporter = slots[i].reporter
		}
	}
	return fallback, reporter
}
