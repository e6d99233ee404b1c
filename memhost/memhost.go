// Package memhost is an in-memory host backend for the reconciler: a
// plain node tree plus a log of every adapter call, so tests and
// benchmarks can assert exactly which mutations a pass produced.
package memhost

import (
	"fmt"
	"sort"
	"strings"

	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
)

// Node is one host node. Either an element with Tag/Props/Children or
// a text node.
type Node struct {
	Tag      string
	Text     string
	IsText   bool
	Props    map[string]any
	Children []*Node
	parent   *Node
}

// Op records one adapter call.
type Op struct {
	Kind   string // create, createText, append, insertBefore, remove, updateProps, setText
	Detail string
}

func (op Op) String() string { return op.Kind + " " + op.Detail }

// Adapter implements runtime.HostAdapter over an in-memory tree.
type Adapter struct {
	root *Node
	Ops  []Op

	// Fail maps an op kind to an error returned by the next call of
	// that kind, for exercising commit failure paths.
	Fail map[string]error
}

func New() *Adapter {
	return &Adapter{root: &Node{Tag: "#root"}, Fail: map[string]error{}}
}

// Container returns the node to mount into.
func (a *Adapter) Container() runtime.HostNode { return a.root }

// NewContainer makes a detached container node, e.g. a portal target.
func (a *Adapter) NewContainer(tag string) *Node { return &Node{Tag: tag} }

// Root returns the container for direct tree inspection.
func (a *Adapter) Root() *Node { return a.root }

func (a *Adapter) record(kind, detail string) {
	a.Ops = append(a.Ops, Op{Kind: kind, Detail: detail})
}

func (a *Adapter) failFor(kind string) error {
	if a.Fail == nil {
		return nil
	}
	if err, ok := a.Fail[kind]; ok {
		delete(a.Fail, kind)
		return err
	}
	return nil
}

// ResetOps clears the log, typically after mount so a test asserts
// only on the update pass.
func (a *Adapter) ResetOps() { a.Ops = nil }

// OpCounts tallies logged ops by kind.
func (a *Adapter) OpCounts() map[string]int {
	counts := map[string]int{}
	for _, op := range a.Ops {
		counts[op.Kind]++
	}
	return counts
}

func (a *Adapter) CreateHostInstance(typ string, props vdom.Props) (runtime.HostNode, error) {
	if err := a.failFor("create"); err != nil {
		return nil, err
	}
	p := make(map[string]any, len(props))
	for k, v := range props {
		p[k] = v
	}
	n := &Node{Tag: typ, Props: p}
	a.record("create", typ)
	return n, nil
}

func (a *Adapter) CreateTextInstance(text string) (runtime.HostNode, error) {
	if err := a.failFor("createText"); err != nil {
		return nil, err
	}
	n := &Node{IsText: true, Text: text}
	a.record("createText", text)
	return n, nil
}

func (a *Adapter) AppendChild(parent, child runtime.HostNode) error {
	if err := a.failFor("append"); err != nil {
		return err
	}
	p, c := parent.(*Node), child.(*Node)
	detach(c)
	c.parent = p
	p.Children = append(p.Children, c)
	a.record("append", label(c)+" -> "+label(p))
	return nil
}

func (a *Adapter) InsertBefore(parent, child, before runtime.HostNode) error {
	if err := a.failFor("insertBefore"); err != nil {
		return err
	}
	p, c, b := parent.(*Node), child.(*Node), before.(*Node)
	idx := indexOf(p, b)
	if idx < 0 {
		return fmt.Errorf("memhost: anchor %s not in %s", label(b), label(p))
	}
	detach(c)
	// re-resolve, detaching may have shifted the anchor
	idx = indexOf(p, b)
	c.parent = p
	p.Children = append(p.Children, nil)
	copy(p.Children[idx+1:], p.Children[idx:])
	p.Children[idx] = c
	a.record("insertBefore", label(c)+" < "+label(b))
	return nil
}

func (a *Adapter) RemoveChild(parent, child runtime.HostNode) error {
	if err := a.failFor("remove"); err != nil {
		return err
	}
	p, c := parent.(*Node), child.(*Node)
	idx := indexOf(p, c)
	if idx < 0 {
		return fmt.Errorf("memhost: %s not in %s", label(c), label(p))
	}
	p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	c.parent = nil
	a.record("remove", label(c))
	return nil
}

func (a *Adapter) CommitPropsUpdate(node runtime.HostNode, diff map[string]any) error {
	if err := a.failFor("updateProps"); err != nil {
		return err
	}
	n := node.(*Node)
	if n.Props == nil {
		n.Props = map[string]any{}
	}
	keys := make([]string, 0, len(diff))
	for k, v := range diff {
		if v == nil {
			delete(n.Props, k)
		} else {
			n.Props[k] = v
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	a.record("updateProps", label(n)+" {"+strings.Join(keys, ",")+"}")
	return nil
}

func (a *Adapter) CommitTextUpdate(node runtime.HostNode, text string) error {
	if err := a.failFor("setText"); err != nil {
		return err
	}
	n := node.(*Node)
	n.Text = text
	a.record("setText", text)
	return nil
}

func detach(n *Node) {
	if n.parent == nil {
		return
	}
	p := n.parent
	if idx := indexOf(p, n); idx >= 0 {
		p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	}
	n.parent = nil
}

func indexOf(p *Node, child *Node) int {
	for i, c := range p.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func label(n *Node) string {
	if n.IsText {
		return "#text(" + n.Text + ")"
	}
	return n.Tag
}

// String renders the container's subtree as a compact markup dump with
// sorted props, handy for whole-tree assertions.
func (a *Adapter) String() string { return a.root.String() }

// String renders the node's children as a compact markup dump.
func (n *Node) String() string {
	var sb strings.Builder
	for _, c := range n.Children {
		writeNode(&sb, c)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	if n.IsText {
		sb.WriteString(n.Text)
		return
	}
	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, " %s=%q", k, fmt.Sprint(n.Props[k]))
	}
	sb.WriteByte('>')
	for _, c := range n.Children {
		writeNode(sb, c)
	}
	sb.WriteString("</" + n.Tag + ">")
}
