// Package htmlhost is a static-serialization host backend: the
// reconciler commits into a detached node tree which renders to an
// HTML string. It exists to show the same reconciler targeting a
// non-live backend through the one adapter interface.
package htmlhost

import (
	"fmt"
	"sort"

	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
)

// Node is one serializable host node.
type Node struct {
	Tag      string
	Text     string
	IsText   bool
	Props    map[string]any
	Children []*Node
	parent   *Node
}

// Adapter implements runtime.HostAdapter over a detached tree.
type Adapter struct {
	root *Node
}

func New() *Adapter {
	return &Adapter{root: &Node{Tag: "#root"}}
}

func (a *Adapter) Container() runtime.HostNode { return a.root }

// HTML serializes the committed tree.
func (a *Adapter) HTML() string { return Tree(a.root) }

func (a *Adapter) CreateHostInstance(typ string, props vdom.Props) (runtime.HostNode, error) {
	p := make(map[string]any, len(props))
	for k, v := range props {
		p[k] = v
	}
	return &Node{Tag: typ, Props: p}, nil
}

func (a *Adapter) CreateTextInstance(text string) (runtime.HostNode, error) {
	return &Node{IsText: true, Text: text}, nil
}

func (a *Adapter) AppendChild(parent, child runtime.HostNode) error {
	p, c := parent.(*Node), child.(*Node)
	detach(c)
	c.parent = p
	p.Children = append(p.Children, c)
	return nil
}

func (a *Adapter) InsertBefore(parent, child, before runtime.HostNode) error {
	p, c, b := parent.(*Node), child.(*Node), before.(*Node)
	if indexOf(p, b) < 0 {
		return fmt.Errorf("htmlhost: anchor not in parent %s", p.Tag)
	}
	detach(c)
	idx := indexOf(p, b)
	c.parent = p
	p.Children = append(p.Children, nil)
	copy(p.Children[idx+1:], p.Children[idx:])
	p.Children[idx] = c
	return nil
}

func (a *Adapter) RemoveChild(parent, child runtime.HostNode) error {
	p, c := parent.(*Node), child.(*Node)
	idx := indexOf(p, c)
	if idx < 0 {
		return fmt.Errorf("htmlhost: child not in parent %s", p.Tag)
	}
	p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	c.parent = nil
	return nil
}

func (a *Adapter) CommitPropsUpdate(node runtime.HostNode, diff map[string]any) error {
	n := node.(*Node)
	if n.Props == nil {
		n.Props = map[string]any{}
	}
	for k, v := range diff {
		if v == nil {
			delete(n.Props, k)
		} else {
			n.Props[k] = v
		}
	}
	return nil
}

func (a *Adapter) CommitTextUpdate(node runtime.HostNode, text string) error {
	node.(*Node).Text = text
	return nil
}

func detach(n *Node) {
	if n.parent == nil {
		return
	}
	if idx := indexOf(n.parent, n); idx >= 0 {
		n.parent.Children = append(n.parent.Children[:idx], n.parent.Children[idx+1:]...)
	}
	n.parent = nil
}

func indexOf(p, child *Node) int {
	for i, c := range p.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func sortedKeys(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func attrString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
