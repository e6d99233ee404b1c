package runtime

import (
	"strconv"

	"github.com/delaneyj/renderparty/vdom"
)

type slotKind int

const (
	slotState slotKind = iota
	slotMemo
	slotEffect
	slotLayoutEffect
	slotBoundary
	slotReporter
)

func (k slotKind) String() string {
	switch k {
	case slotState:
		return "state"
	case slotMemo:
		return "memo"
	case slotEffect:
		return "effect"
	case slotLayoutEffect:
		return "layout effect"
	case slotBoundary:
		return "boundary"
	case slotReporter:
		return "reporter"
	default:
		return "unknown"
	}
}

// effectRecord pairs an effect slot's create function with the deps
// snapshot that decides whether it re-runs, and the cleanup returned by
// the previous create.
type effectRecord struct {
	create        func() func()
	cleanup       func()
	deps          []any
	hasDeps       bool
	layout        bool
	pendingCreate bool
}

type slot struct {
	kind     slotKind
	state    any
	memo     any
	memoDeps []any
	effect   *effectRecord
	boundary func(error) *vdom.Descriptor
	reporter func(error)
}

type pendingUpdate struct {
	slot  int
	apply func(prev any) any
}

// instance is the persistent identity backing one descriptor position.
// It outlives any single render; the descriptors that describe it are
// rebuilt every pass. Committed fields are only written during the
// non-interruptible commit phase. Staged (wip*) fields belong to the
// work-in-progress generation and are ignored unless gen matches the
// root's current pass, so an abandoned pass leaves no trace.
type instance struct {
	kind     vdom.Kind
	tag      string
	text     string
	comp     any
	compID   uintptr
	compName string
	key      string
	hasKey   bool

	parent   *instance
	props    vdom.Props
	children []*instance
	host     HostNode
	portal   HostNode

	slots   []slot
	pending []pendingUpdate // guarded by Root.mu
	applied int             // pending updates consumed by the in-flight pass

	selfDirty  bool // guarded by Root.mu, with childDirty
	childDirty int

	dead bool // host creation failed; never reused, never updated

	caught         error                          // boundary captured a descendant error; renders fallback
	caughtFallback func(error) *vdom.Descriptor   // recovery hook grabbed at capture time
	lastDesc       *vdom.Descriptor               // descriptor of the in-flight unit, for boundary re-processing

	// work-in-progress staging, valid iff gen == Root.gen
	gen         uint64
	created     bool
	moved       bool
	staged      bool // wipChildren/propsDiff/wipText valid for this gen
	rendered    bool // component body ran this pass; wipSlots valid
	textChanged bool
	wipText     string
	wipProps    vdom.Props
	wipChildren []*instance
	wipSlots    []slot
	propsDiff   map[string]any
	deletions   []*instance
}

func newInstance(d *vdom.Descriptor) *instance {
	return &instance{
		kind:     d.Kind,
		tag:      d.Tag,
		text:     d.Text,
		comp:     d.Component,
		compID:   d.CompID,
		compName: d.CompName,
		key:      d.Key,
		hasKey:   d.HasKey,
		portal:   d.PortalTarget,
	}
}

func (inst *instance) typeName() string {
	switch inst.kind {
	case vdom.KindHost:
		return inst.tag
	case vdom.KindComponent:
		return inst.compName
	default:
		return inst.kind.String()
	}
}

// identity mirrors vdom.DescriptorIdentity for a mounted instance so
// both sides of the child diff hash to the same value.
func (inst *instance) identity(position int) uint64 {
	key := "p:" + strconv.Itoa(position)
	if inst.hasKey {
		key = "k:" + inst.key
	}
	return vdom.Identity(inst.kind, inst.typeName(), key)
}

func (inst *instance) name() string {
	switch inst.kind {
	case vdom.KindComponent:
		if inst.compName != "" {
			return inst.compName
		}
		return "anonymous component"
	case vdom.KindHost:
		return inst.tag
	default:
		return inst.kind.String()
	}
}

// effectiveChildren is the child list commit should walk: staged when
// this pass touched the node, committed otherwise.
func (inst *instance) effectiveChildren(gen uint64) []*instance {
	if inst.gen == gen && inst.staged {
		return inst.wipChildren
	}
	return inst.children
}

// firstHostNode finds the leftmost already-attached host node in the
// subtree, used as the insertBefore anchor for preceding siblings.
func (inst *instance) firstHostNode(gen uint64) HostNode {
	switch inst.kind {
	case vdom.KindHost, vdom.KindText:
		return inst.host
	case vdom.KindPortal:
		// portal children live in another container; invisible here
		return nil
	}
	for _, child := range inst.effectiveChildren(gen) {
		if h := child.firstHostNode(gen); h != nil {
			return h
		}
	}
	return nil
}

// markDirty and clearDirty walk the committed parent chain; callers
// hold Root.mu so the walk cannot race commit's parent rewiring.
func (inst *instance) markDirty() {
	if inst.selfDirty {
		return
	}
	inst.selfDirty = true
	for p := inst.parent; p != nil; p = p.parent {
		p.childDirty++
	}
}

func (inst *instance) clearDirty() {
	if !inst.selfDirty {
		return
	}
	inst.selfDirty = false
	for p := inst.parent; p != nil; p = p.parent {
		p.childDirty--
	}
}
