package runtime

import (
	"errors"
	"fmt"
)

var errNotAComponent = errors.New("descriptor type is not a runtime.Component")

// RenderError wraps an error (or recovered panic) raised inside a
// component's render function. It is the only error class, together
// with CommitError, that an ancestor error boundary may intercept.
type RenderError struct {
	Component string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render of %s failed: %v", e.Component, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// CommitError wraps a host adapter failure while applying a mutation.
// The host tree may be inconsistent afterwards, so it is surfaced to
// the nearest boundary and also reported on the uncaught channel.
type CommitError struct {
	Op  string
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s failed: %v", e.Op, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// EffectError wraps an error raised by an effect's create or cleanup.
// Effects run after commit, outside any boundary's render scope, so
// these always go to the uncaught channel.
type EffectError struct {
	Component string
	Err       error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("effect of %s failed: %v", e.Component, e.Err)
}

func (e *EffectError) Unwrap() error { return e.Err }

// HookOrderViolation reports a mismatch in hook slot count or kind
// between two renders of the same instance. Positional slot addressing
// cannot recover from this, so it is always fatal for the update.
type HookOrderViolation struct {
	Component string
	Slot      int
	Prev      string
	Got       string
}

func (e *HookOrderViolation) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("hook order violation in %s: render read fewer hooks than the previous render (slot %d %s missing)", e.Component, e.Slot, e.Prev)
	}
	if e.Prev == "" {
		return fmt.Sprintf("hook order violation in %s: render read extra hook %s at slot %d", e.Component, e.Got, e.Slot)
	}
	return fmt.Sprintf("hook order violation in %s: slot %d was %s, now %s", e.Component, e.Slot, e.Prev, e.Got)
}

func recoveredToErr(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
