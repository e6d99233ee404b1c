package runtime

// effectRun points at one effect slot due to fire after a commit.
type effectRun struct {
	inst *instance
	slot int
}

// drainPassive fires queued passive effects in component-subtree
// order. Setters called inside an effect enqueue normally and are
// picked up by the surrounding flush loop.
func (r *Root) drainPassive() {
	queue := r.passiveQueue
	r.passiveQueue = nil
	for _, run := range queue {
		r.invokeEffect(run)
	}
}

// invokeEffect runs one due effect: previous cleanup first, then
// create, retaining create's return value as the next cleanup. A slot
// superseded or unmounted since scheduling is skipped.
func (r *Root) invokeEffect(run effectRun) {
	if run.slot >= len(run.inst.slots) {
		return
	}
	rec := run.inst.slots[run.slot].effect
	if rec == nil || !rec.pendingCreate {
		return
	}
	rec.pendingCreate = false
	if rec.cleanup != nil {
		cleanup := rec.cleanup
		rec.cleanup = nil
		if !r.guardEffect(run.inst, cleanup) {
			return
		}
	}
	r.guardEffectCreate(run.inst, rec)
}

// guardEffect invokes a cleanup, converting a panic into an
// EffectError on the uncaught channel. Boundaries never see these:
// they fire after commit, outside any render scope.
func (r *Root) guardEffect(inst *instance, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			if r.onUncaught != nil {
				r.onUncaught(&EffectError{Component: inst.name(), Err: recoveredToErr(rec)})
			}
		}
	}()
	fn()
	return true
}

func (r *Root) guardEffectCreate(inst *instance, record *effectRecord) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.onUncaught != nil {
				r.onUncaught(&EffectError{Component: inst.name(), Err: recoveredToErr(rec)})
			}
		}
	}()
	record.cleanup = record.create()
}
