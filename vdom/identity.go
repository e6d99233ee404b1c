package vdom

import "github.com/cespare/xxhash/v2"

// Identity hashes the (kind, type, key) triple that decides whether a
// descriptor matches an existing instance. The reconciler's keyed child
// maps index on this value.
func Identity(kind Kind, typeName, key string) uint64 {
	var h xxhash.Digest
	h.Reset()
	_, _ = h.Write([]byte{byte(kind), 0})
	_, _ = h.WriteString(typeName)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(key)
	return h.Sum64()
}

// DescriptorIdentity is Identity applied to a descriptor, with the
// positional index standing in for a missing key. Explicit and
// positional keys live in separate namespaces so a key of "0" never
// aliases the child at position zero.
func DescriptorIdentity(d *Descriptor, positionalKey string) uint64 {
	key := "p:" + positionalKey
	if d.HasKey {
		key = "k:" + d.Key
	}
	return Identity(d.Kind, d.TypeName(), key)
}
