package runtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/delaneyj/renderparty/vdom"
)

// Priority orders scheduled work. Higher wins; a higher-priority
// update arriving while a pass is rendering discards the work in
// progress and restarts from the committed tree.
type Priority int

const (
	PriorityIdle Priority = iota
	PriorityNormal
	PriorityInteraction
	PrioritySync
)

func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityNormal:
		return "normal"
	case PriorityInteraction:
		return "interaction"
	case PrioritySync:
		return "sync"
	default:
		return "unknown"
	}
}

type schedState int

const (
	stateIdle schedState = iota
	stateRendering
	stateCommitting
)

// maxBoundaryRestarts bounds how many captures a single pass may
// absorb so a fallback that itself crashes cannot spin forever.
const maxBoundaryRestarts = 64

var errUnmounted = errors.New("root has been unmounted")

// Root drives one mounted tree. State setters may be invoked from any
// goroutine: the enqueue and dirty marking are guarded by mu, and a
// synchronous setter only renders when no other goroutine already
// holds flushMu. Everything else, FlushAll, Tick, Update, Batch,
// AtPriority and Unmount included, belongs to the goroutine driving
// the tree.
type Root struct {
	adapter   HostAdapter
	container HostNode
	rootInst  *instance

	// mu guards the scheduling fields plus every pending queue and
	// dirty counter a setter can reach from another goroutine.
	mu              sync.Mutex
	desc            *vdom.Descriptor
	needsRender     bool
	pendingPriority Priority
	batchDepth      int
	eventPriority   Priority
	unmounted       bool
	wipActive       bool
	wipPriority     Priority
	wipCancelled    bool

	// flushMu serializes render and commit; whichever goroutine holds
	// it is the driver for that drain.
	flushMu   sync.Mutex
	gen       uint64
	state     schedState
	pass      *renderPass
	strict    bool
	commitErr error

	layoutQueue  []effectRun
	passiveQueue []effectRun

	onUncaught func(error)
	onWarning  func(string)
}

type Option func(*Root)

// WithStrictRender renders every component twice per pass, discarding
// the first result, to surface impure render functions early.
func WithStrictRender() Option {
	return func(r *Root) { r.strict = true }
}

// WithOnUncaught installs the host-level channel for errors no
// boundary can intercept: effect errors, commit errors, and fatal
// render failures.
func WithOnUncaught(fn func(error)) Option {
	return func(r *Root) { r.onUncaught = fn }
}

// WithOnWarning installs the channel for detectable misuse reports,
// such as duplicate sibling keys.
func WithOnWarning(fn func(string)) Option {
	return func(r *Root) { r.onWarning = fn }
}

// Mount performs the first render of desc into container and returns
// the handle for subsequent updates and teardown.
func Mount(adapter HostAdapter, container HostNode, desc *vdom.Descriptor, opts ...Option) (*Root, error) {
	r := &Root{
		adapter:       adapter,
		container:     container,
		eventPriority: PrioritySync,
		rootInst: &instance{
			kind: vdom.KindHost,
			tag:  "#root",
			host: container,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.desc = desc
	r.needsRender = true
	r.pendingPriority = PrioritySync
	if err := r.FlushAll(); err != nil {
		return r, err
	}
	return r, nil
}

// Update schedules a re-render of the root against a new descriptor
// tree. Work drains on the next Tick or FlushAll.
func (r *Root) Update(desc *vdom.Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unmounted {
		return
	}
	r.desc = desc
	r.needsRender = true
	if r.pendingPriority < PriorityNormal {
		r.pendingPriority = PriorityNormal
	}
	r.preemptLocked(PriorityNormal)
}

// Unmount tears the whole tree down, running every cleanup, and
// releases the root. It waits for an in-flight drain to finish.
func (r *Root) Unmount() {
	r.mu.Lock()
	if r.unmounted {
		r.mu.Unlock()
		return
	}
	r.unmounted = true
	r.wipActive = false
	r.wipCancelled = false
	r.mu.Unlock()

	r.flushMu.Lock()
	defer r.flushMu.Unlock()
	r.pass = nil
	r.passiveQueue = nil
	r.layoutQueue = nil
	for _, child := range r.rootInst.children {
		r.teardown(child, r.container, true)
	}
	r.rootInst.children = nil
}

// StartBatch / EndBatch bracket a task whose synchronous setter calls
// should coalesce into a single render and commit.
func (r *Root) StartBatch() {
	r.mu.Lock()
	r.batchDepth++
	r.mu.Unlock()
}

func (r *Root) EndBatch() error {
	r.mu.Lock()
	r.batchDepth--
	drain := r.batchDepth == 0
	r.mu.Unlock()
	if drain {
		return r.flush(0)
	}
	return nil
}

func (r *Root) Batch(fn func()) error {
	r.StartBatch()
	fn()
	return r.EndBatch()
}

// AtPriority runs fn with setter-originated updates scheduled at p
// instead of the default synchronous priority. Non-sync updates are
// not auto-flushed; the host drains them with Tick or FlushAll.
func (r *Root) AtPriority(p Priority, fn func()) {
	r.mu.Lock()
	prev := r.eventPriority
	r.eventPriority = p
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.eventPriority = prev
		r.mu.Unlock()
	}()
	fn()
}

// FlushAll synchronously drains all pending work regardless of
// priority, including passive effects. Deterministic-flush hook for
// tests and simple hosts.
func (r *Root) FlushAll() error { return r.flush(0) }

// Tick processes work units until the budget elapses, pausing the
// in-progress pass at a unit boundary when time runs out. A zero
// budget behaves like FlushAll.
func (r *Root) Tick(budget time.Duration) error { return r.flush(budget) }

func (r *Root) flush(budget time.Duration) error {
	if !r.flushMu.TryLock() {
		// another goroutine (or this one, re-entrantly through an
		// effect) is already draining and will pick the work up
		return nil
	}
	defer r.flushMu.Unlock()

	r.mu.Lock()
	unmounted := r.unmounted
	r.mu.Unlock()
	if unmounted {
		return errUnmounted
	}

	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}
	expired := func() bool {
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	for {
		if r.pass != nil && r.passCancelled() {
			r.pass = nil
			r.retirePass()
		}
		if r.pass == nil {
			need, prio := r.takeScheduled()
			if !need {
				if len(r.passiveQueue) == 0 {
					return nil
				}
				r.drainPassive()
				continue
			}
			r.pass = r.newPass(prio)
			r.state = stateRendering
		}

		for {
			more, failed, err := r.pass.step()
			if err != nil {
				if _, fatalOrder := err.(*HookOrderViolation); fatalOrder {
					r.pass = nil
					r.retirePass()
					r.state = stateIdle
					return r.fatal(err)
				}
				r.pass.catches++
				if r.pass.catches > maxBoundaryRestarts || !r.captureInPass(r.pass, failed, err) {
					r.pass = nil
					r.retirePass()
					r.state = stateIdle
					return r.fatal(err)
				}
				continue
			}
			if !more {
				pass := r.pass
				r.pass = nil
				r.retirePass()
				if err := r.commitPass(pass); err != nil {
					return err
				}
				break
			}
			if r.passCancelled() {
				// superseded; the outer loop discards and restarts
				break
			}
			if expired() {
				// pause at a unit boundary; resume on the next Tick
				return nil
			}
		}

		if expired() {
			return nil
		}
	}
}

// takeScheduled atomically claims the pending render request and marks
// the work in progress so later setters can preempt it.
func (r *Root) takeScheduled() (bool, Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.needsRender {
		return false, PriorityIdle
	}
	r.needsRender = false
	p := r.pendingPriority
	r.pendingPriority = PriorityIdle
	r.wipActive = true
	r.wipPriority = p
	r.wipCancelled = false
	return true, p
}

func (r *Root) retirePass() {
	r.mu.Lock()
	r.wipActive = false
	r.wipCancelled = false
	r.mu.Unlock()
}

func (r *Root) passCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wipCancelled
}

// preemptLocked flags the work in progress for discard when higher
// priority work arrives; the driving goroutine notices at the next
// unit boundary. Safe because no mutation escapes before commit.
// Caller holds mu.
func (r *Root) preemptLocked(p Priority) {
	if r.wipActive && !r.wipCancelled && p > r.wipPriority {
		r.wipCancelled = true
		r.needsRender = true
		if r.pendingPriority < p {
			r.pendingPriority = p
		}
	}
}

// enqueueUpdate is the setter entry point, callable from any
// goroutine. The payload lands on the instance's queue under mu; for
// synchronous priority outside a batch the caller then drains, unless
// another goroutine already is.
func (r *Root) enqueueUpdate(inst *instance, slot int, apply func(any) any) {
	r.mu.Lock()
	if r.unmounted {
		r.mu.Unlock()
		return
	}
	p := r.eventPriority
	inst.pending = append(inst.pending, pendingUpdate{slot: slot, apply: apply})
	inst.markDirty()
	r.needsRender = true
	if r.pendingPriority < p {
		r.pendingPriority = p
	}
	r.preemptLocked(p)
	syncFlush := p == PrioritySync && r.batchDepth == 0
	r.mu.Unlock()

	if syncFlush {
		_ = r.flush(0)
	}
}

// snapshotPending freezes the slice of updates this render will fold
// in and reports whether any descendant holds queued work.
func (r *Root) snapshotPending(inst *instance) ([]pendingUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst.applied = len(inst.pending)
	return inst.pending[:inst.applied], inst.childDirty == 0
}

// consumeApplied drops the updates the committed pass folded in.
// Anything enqueued after the snapshot re-schedules.
func (r *Root) consumeApplied(inst *instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rest := inst.pending[inst.applied:]
	inst.pending = append([]pendingUpdate(nil), rest...)
	inst.applied = 0
	if len(inst.pending) == 0 {
		inst.clearDirty()
	} else {
		r.needsRender = true
		if r.pendingPriority < PriorityNormal {
			r.pendingPriority = PriorityNormal
		}
	}
}

// consumePending discards a bailed-out instance's queue: the updates
// reduced to the committed values, so nothing re-schedules.
func (r *Root) consumePending(inst *instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst.pending = nil
	inst.applied = 0
	inst.clearDirty()
}

// clearQueued abandons an instance's queue entirely, used on unmount
// and on boundaries rendering their fallback.
func (r *Root) clearQueued(inst *instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst.pending = nil
	inst.applied = 0
	inst.clearDirty()
}

func (r *Root) warnf(format string, args ...any) {
	if r.onWarning != nil {
		r.onWarning(fmt.Sprintf(format, args...))
	}
}
