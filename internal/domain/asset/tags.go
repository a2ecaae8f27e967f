package asset

import (
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// TagKind identifies the representation of a tag value.
type TagKind uint8

const (
	KindString TagKind = iota
	KindName
	KindInt
	KindFloat
	KindBool
)

// TagValue is a tagged union of a string or a small scalar.
type TagValue struct {
	kind TagKind
	str  string
	name names.Name
	bits uint64
}

// StringValue returns a string tag value.
func StringValue(s string) TagValue { return TagValue{kind: KindString, str: s} }

// NameValue returns an interned name tag value.
func NameValue(n names.Name) TagValue { return TagValue{kind: KindName, name: n} }

// IntValue returns an integer tag value.
func IntValue(i int64) TagValue { return TagValue{kind: KindInt, bits: uint64(i)} }

// FloatValue returns a floating point tag value.
func FloatValue(f float64) TagValue { return TagValue{kind: KindFloat, bits: math.Float64bits(f)} }

// BoolValue returns a boolean tag value.
func BoolValue(b bool) TagValue {
	v := TagValue{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Kind returns the value's representation.
func (v TagValue) Kind() TagKind { return v.kind }

// AsName returns the name for KindName values.
func (v TagValue) AsName() (names.Name, bool) { return v.name, v.kind == KindName }

// AsInt returns the integer for KindInt values.
func (v TagValue) AsInt() (int64, bool) { return int64(v.bits), v.kind == KindInt }

// AsFloat returns the number for KindFloat values.
func (v TagValue) AsFloat() (float64, bool) { return math.Float64frombits(v.bits), v.kind == KindFloat }

// AsBool returns the boolean for KindBool values.
func (v TagValue) AsBool() (bool, bool) { return v.bits != 0, v.kind == KindBool }

// String returns the canonical text of the value.
func (v TagValue) String() string {
	switch v.kind {
	case KindName:
		return v.name.String()
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	default:
		return v.str
	}
}

// Payload returns the scalar payload: name handle, integer bits, float bits
// or 0/1. String values have no payload.
func (v TagValue) Payload() uint64 {
	if v.kind == KindName {
		return uint64(v.name)
	}
	return v.bits
}

// TagValueFromPayload rebuilds a scalar value. String values are built with
// StringValue instead.
func TagValueFromPayload(kind TagKind, payload uint64) TagValue {
	if kind == KindName {
		return NameValue(names.Name(payload))
	}
	return TagValue{kind: kind, bits: payload}
}

// Equal compares kind and value.
func (v TagValue) Equal(o TagValue) bool {
	return v == o
}

// TagPair is one key/value entry.
type TagPair struct {
	Key   names.Name
	Value TagValue
}

// FixedTagStore deduplicates tag pairs and hands out integer handles.
// Adding is serialized; lookups are safe once building is complete.
type FixedTagStore struct {
	mu      sync.RWMutex
	entries []TagPair
	index   map[TagPair]uint32
}

// NewFixedTagStore returns an empty store.
func NewFixedTagStore() *FixedTagStore {
	return &FixedTagStore{index: make(map[TagPair]uint32)}
}

// NewFixedTagStoreFrom wraps decoded entries.
func NewFixedTagStoreFrom(entries []TagPair) *FixedTagStore {
	return &FixedTagStore{entries: entries}
}

// Add returns the handle for pair, storing it on first use.
func (s *FixedTagStore) Add(pair TagPair) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = make(map[TagPair]uint32, len(s.entries))
		for i, e := range s.entries {
			s.index[e] = uint32(i)
		}
	}
	if h, ok := s.index[pair]; ok {
		return h
	}
	h := uint32(len(s.entries))
	s.entries = append(s.entries, pair)
	s.index[pair] = h
	return h
}

// Entry resolves a handle.
func (s *FixedTagStore) Entry(h uint32) (TagPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(h) >= len(s.entries) {
		return TagPair{}, false
	}
	return s.entries[h], true
}

// Len returns the number of distinct pairs.
func (s *FixedTagStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of all pairs in handle order.
func (s *FixedTagStore) Entries() []TagPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// TagMap is an immutable set of tags with unique keys. The zero value is empty.
type TagMap struct {
	loose   []TagPair
	store   *FixedTagStore
	handles []uint32
}

// NewTagMap builds a loose map; a repeated key keeps the last value.
func NewTagMap(pairs ...TagPair) TagMap {
	out := make([]TagPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Key.IsNone() {
			continue
		}
		if i := slices.IndexFunc(out, func(e TagPair) bool { return e.Key == p.Key }); i >= 0 {
			out[i] = p
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b TagPair) int { return names.Compare(a.Key, b.Key) })
	return TagMap{loose: out}
}

// TagMapFromStrings builds a loose map of string values.
func TagMapFromStrings(m map[string]string) TagMap {
	pairs := make([]TagPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, TagPair{Key: names.Intern(k), Value: StringValue(v)})
	}
	return NewTagMap(pairs...)
}

// NewFixedTagMap builds a map whose pairs live in store.
func NewFixedTagMap(store *FixedTagStore, handles []uint32) TagMap {
	if len(handles) == 0 {
		return TagMap{}
	}
	return TagMap{store: store, handles: handles}
}

// IsFixed reports whether pairs are resolved through a FixedTagStore.
func (m TagMap) IsFixed() bool { return m.store != nil }

// Len returns the number of tags.
func (m TagMap) Len() int {
	if m.store != nil {
		return len(m.handles)
	}
	return len(m.loose)
}

// IsEmpty reports whether the map has no tags.
func (m TagMap) IsEmpty() bool { return m.Len() == 0 }

func (m TagMap) at(i int) TagPair {
	if m.store != nil {
		p, _ := m.store.Entry(m.handles[i])
		return p
	}
	return m.loose[i]
}

// Range calls fn for every pair until it returns false.
func (m TagMap) Range(fn func(TagPair) bool) {
	for i := 0; i < m.Len(); i++ {
		if !fn(m.at(i)) {
			return
		}
	}
}

// Get returns the value stored under key.
func (m TagMap) Get(key names.Name) (TagValue, bool) {
	for i := 0; i < m.Len(); i++ {
		if p := m.at(i); p.Key == key {
			return p.Value, true
		}
	}
	return TagValue{}, false
}

// Contains reports whether key is present.
func (m TagMap) Contains(key names.Name) bool {
	_, ok := m.Get(key)
	return ok
}

// ContainsKeyValue reports whether key is present with the given text.
func (m TagMap) ContainsKeyValue(key names.Name, text string) bool {
	v, ok := m.Get(key)
	return ok && v.String() == text
}

// Keys returns the keys in map order.
func (m TagMap) Keys() []names.Name {
	keys := make([]names.Name, 0, m.Len())
	m.Range(func(p TagPair) bool {
		keys = append(keys, p.Key)
		return true
	})
	return keys
}

// Pairs returns a copy of every pair.
func (m TagMap) Pairs() []TagPair {
	pairs := make([]TagPair, 0, m.Len())
	m.Range(func(p TagPair) bool {
		pairs = append(pairs, p)
		return true
	})
	return pairs
}

// Filter returns a loose map of the pairs for which keep returns true.
func (m TagMap) Filter(keep func(TagPair) bool) TagMap {
	pairs := make([]TagPair, 0, m.Len())
	m.Range(func(p TagPair) bool {
		if keep(p) {
			pairs = append(pairs, p)
		}
		return true
	})
	if len(pairs) == m.Len() {
		return m
	}
	return NewTagMap(pairs...)
}

// Without returns the map minus key.
func (m TagMap) Without(key names.Name) TagMap {
	return m.Filter(func(p TagPair) bool { return p.Key != key })
}

// Equal compares contents regardless of storage.
func (m TagMap) Equal(o TagMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	equal := true
	m.Range(func(p TagPair) bool {
		v, ok := o.Get(p.Key)
		equal = ok && v.Equal(p.Value)
		return equal
	})
	return equal
}
