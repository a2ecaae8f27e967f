// Package names provides the process-wide string interner.
//
// A Name is a small integer handle for a string. Handles are stable for the
// lifetime of the process, compare with ==, and are cheap map keys, which is
// why every name-like value in the asset registry (package names, paths,
// classes, tag keys) is carried as a Name.
//
// Features:
//   - Goroutine-safe interning with a read-mostly fast path
//   - Case-sensitive: "/Game/A" and "/game/a" are different names
//   - The empty string always interns to None
//
// Example Usage:
//
//	n := names.Intern("/Game/Maps/Level")
//	fmt.Println(n.String())
package names

import (
	"strings"
	"sync"
)

// Name is an interned string handle. The zero value is None.
type Name uint32

// None is the handle of the empty string.
const None Name = 0

type table struct {
	mu   sync.RWMutex
	ids  map[string]Name
	strs []string
}

var global = &table{
	ids:  make(map[string]Name),
	strs: []string{""},
}

// Intern returns the handle for s, creating it if needed.
func Intern(s string) Name {
	if s == "" {
		return None
	}

	global.mu.RLock()
	n, ok := global.ids[s]
	global.mu.RUnlock()
	if ok {
		return n
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if n, ok := global.ids[s]; ok {
		return n
	}
	// Clone so the table never pins a larger buffer the caller sliced s from.
	s = strings.Clone(s)
	n = Name(len(global.strs))
	global.strs = append(global.strs, s)
	global.ids[s] = n
	return n
}

// InternAll interns every string in ss. It returns nil for no strings.
func InternAll(ss ...string) []Name {
	if len(ss) == 0 {
		return nil
	}
	out := make([]Name, len(ss))
	for i, s := range ss {
		out[i] = Intern(s)
	}
	return out
}

// Find returns the handle for s without creating one.
func Find(s string) (Name, bool) {
	if s == "" {
		return None, true
	}
	global.mu.RLock()
	defer global.mu.RUnlock()
	n, ok := global.ids[s]
	return n, ok
}

// String returns the interned string.
func (n Name) String() string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	if int(n) >= len(global.strs) {
		return ""
	}
	return global.strs[n]
}

// IsNone reports whether n is the empty name.
func (n Name) IsNone() bool {
	return n == None
}

// Compare orders names lexically by their strings.
func Compare(a, b Name) int {
	if a == b {
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

// Less reports whether a sorts before b lexically.
func Less(a, b Name) bool {
	return Compare(a, b) < 0
}

// Set is a set of names.
type Set map[Name]struct{}

// NewSet builds a set from strings.
func NewSet(ss ...string) Set {
	s := make(Set, len(ss))
	for _, v := range ss {
		s[Intern(v)] = struct{}{}
	}
	return s
}

// Add inserts n.
func (s Set) Add(n Name) { s[n] = struct{}{} }

// Contains reports membership; a nil set contains nothing.
func (s Set) Contains(n Name) bool {
	_, ok := s[n]
	return ok
}
