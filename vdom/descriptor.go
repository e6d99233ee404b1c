package vdom

import (
	"fmt"
	"reflect"
	"runtime"
)

// Kind is the closed set of node descriptor variants. The reconciler
// dispatches on it exhaustively; there is no open subtype dispatch.
type Kind int

const (
	KindHost Kind = iota // host primitive, e.g. an element tag
	KindComponent
	KindFragment
	KindText
	KindPortal
)

func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindComponent:
		return "component"
	case KindFragment:
		return "fragment"
	case KindText:
		return "text"
	case KindPortal:
		return "portal"
	default:
		return "unknown"
	}
}

type fragmentSentinel struct{}

type portalSentinel struct{ Target any }

// Fragment groups children without introducing a host node.
var Fragment = fragmentSentinel{}

// Portal mounts its children into the given host container instead of
// the nearest host ancestor.
func Portal(target any) portalSentinel {
	return portalSentinel{Target: target}
}

// Descriptor is an immutable description of one node of the desired UI
// tree for a single render pass. A new tree is built on every render;
// descriptors are never mutated after H returns.
type Descriptor struct {
	Kind         Kind
	Tag          string // KindHost
	Text         string // KindText
	Component    any    // KindComponent; asserted by the runtime
	CompID       uintptr
	CompName     string
	Key          string
	HasKey       bool
	Props        Props
	Children     []*Descriptor
	PortalTarget any
}

// H builds a descriptor. typ is a host tag string, a component
// function, Fragment, or Portal(target). A "key" entry in props is
// extracted and stripped before the props map reaches the component.
// Children may be descriptors, strings, fmt.Stringers, integers or
// floats (become text nodes), or nil/bool (render nothing).
func H(typ any, props Props, children ...any) *Descriptor {
	d := &Descriptor{Props: props}
	switch t := typ.(type) {
	case string:
		d.Kind = KindHost
		d.Tag = t
	case fragmentSentinel:
		d.Kind = KindFragment
	case portalSentinel:
		d.Kind = KindPortal
		d.PortalTarget = t.Target
	default:
		v := reflect.ValueOf(typ)
		if v.Kind() != reflect.Func {
			panic(fmt.Sprintf("vdom: H type must be a tag, Fragment, Portal or component func, got %T", typ))
		}
		d.Kind = KindComponent
		d.Component = typ
		d.CompID = v.Pointer()
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			d.CompName = fn.Name()
		}
	}

	if props != nil {
		if raw, ok := props["key"]; ok {
			d.Key = fmt.Sprint(raw)
			d.HasKey = true
			stripped := make(Props, len(props)-1)
			for k, v := range props {
				if k != "key" {
					stripped[k] = v
				}
			}
			d.Props = stripped
		}
	}

	for _, child := range children {
		if c := normalizeChild(child); c != nil {
			d.Children = append(d.Children, c)
		}
	}
	return d
}

// Text builds a text node descriptor.
func Text(s string) *Descriptor {
	return &Descriptor{Kind: KindText, Text: s}
}

func normalizeChild(child any) *Descriptor {
	switch c := child.(type) {
	case nil:
		return nil
	case bool:
		// true/false both render nothing, matching conditional
		// rendering of the form cond && node.
		return nil
	case *Descriptor:
		return c
	case string:
		return Text(c)
	case fmt.Stringer:
		return Text(c.String())
	case int:
		return Text(fmt.Sprintf("%d", c))
	case int64:
		return Text(fmt.Sprintf("%d", c))
	case uint:
		return Text(fmt.Sprintf("%d", c))
	case float64:
		return Text(fmt.Sprintf("%g", c))
	default:
		panic(fmt.Sprintf("vdom: child must be *Descriptor, string, number, bool or nil, got %T", child))
	}
}

// TypeName is the identity string used to match descriptors across
// renders: tag for hosts, function name for components.
func (d *Descriptor) TypeName() string {
	switch d.Kind {
	case KindHost:
		return d.Tag
	case KindComponent:
		return d.CompName
	default:
		return d.Kind.String()
	}
}

// SameType reports whether two descriptors can share an instance.
// Components compare by function identity, hosts by tag.
func (d *Descriptor) SameType(other *Descriptor) bool {
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case KindHost:
		return d.Tag == other.Tag
	case KindComponent:
		return d.CompID == other.CompID
	default:
		return true
	}
}
