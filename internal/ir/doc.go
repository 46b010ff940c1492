// Package ir provides the type intermediate representation for guardgen.
//
// This package contains the IR node definitions, the declaration and
// instance tables, and the deterministic serialization used for keys and
// hashing. All other internal packages import ir; ir imports nothing
// internal.
//
// Key design constraints:
//   - Type is a sealed interface; passes rebuild trees (see Map) and never
//     mutate a node in place
//   - Union and Intersection always hold at least two members
//   - Every Handle has exactly one entry in the InstanceTable of its session
//   - Keys are canonical JSON (RFC 8785 key order, NFC strings)
package ir
