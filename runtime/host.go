package runtime

import "github.com/delaneyj/renderparty/vdom"

// HostNode is an opaque handle owned by the host adapter. The runtime
// never inspects it, only passes it back.
type HostNode any

// HostAdapter is the contract between the reconciler's commit step and
// a concrete host backend (live tree, off-screen buffer, static
// serialization). The same reconciler drives any implementation.
//
// All methods are invoked on the goroutine driving the root, during the
// non-interruptible commit phase only. An error from any method is
// wrapped as a CommitError.
type HostAdapter interface {
	CreateHostInstance(typ string, props vdom.Props) (HostNode, error)
	CreateTextInstance(text string) (HostNode, error)
	AppendChild(parent, child HostNode) error
	RemoveChild(parent, child HostNode) error
	InsertBefore(parent, child, before HostNode) error
	CommitPropsUpdate(node HostNode, diff map[string]any) error
	CommitTextUpdate(node HostNode, text string) error
}
