package vdom

import "reflect"

// Props carries the attribute/property map of a descriptor. Values are
// compared shallowly; mutating a Props map after it has been handed to
// H is a misuse.
type Props map[string]any

// SameValue is the shallow equality used for prop diffing, hook
// dependency snapshots and state bail-out checks. Comparable values
// compare with ==; uncomparable values are never equal.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// Diff returns the shallow prop diff from old to next. Changed and
// added keys map to their next value; removed keys map to nil. A nil
// return means nothing changed.
func (next Props) Diff(old Props) map[string]any {
	var diff map[string]any
	for k, nv := range next {
		if ov, ok := old[k]; !ok || !SameValue(ov, nv) {
			if diff == nil {
				diff = map[string]any{}
			}
			diff[k] = nv
		}
	}
	for k := range old {
		if _, ok := next[k]; !ok {
			if diff == nil {
				diff = map[string]any{}
			}
			diff[k] = nil
		}
	}
	return diff
}
