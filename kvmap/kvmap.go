// Package kvmap is an insertion-ordered string to string map.
package kvmap

// Entry is a single key/value pair
type Entry struct {
	Key   string
	Value string
}

// Map keeps keys unique and iterates them in insertion order.
// Keys are compared by exact byte equality.
// The zero value is not usable, use New()
type Map struct {
	keys []string
	vals map[string]string
}

func New() *Map {
	return &Map{
		vals: map[string]string{},
	}
}

// FromEntries builds a map from entries. For duplicate keys the
// last value wins and the first position is kept.
func FromEntries(entries ...Entry) *Map {
	m := New()
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

func (m *Map) Len() int {
	return len(m.keys)
}

func (m *Map) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

func (m *Map) Get(key string) (string, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Set inserts or replaces a value. New keys go to the end.
func (m *Map) Set(key, value string) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Delete removes key and returns true if it was present
func (m *Map) Delete(key string) bool {
	if _, ok := m.vals[key]; !ok {
		return false
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns a copy of keys in iteration order
func (m *Map) Keys() []string {
	return append([]string{}, m.keys...)
}

// Entries returns a copy of all entries in iteration order
func (m *Map) Entries() []Entry {
	res := make([]Entry, 0, len(m.keys))
	for _, k := range m.keys {
		res = append(res, Entry{Key: k, Value: m.vals[k]})
	}
	return res
}

// Equal returns true if both maps have the same set of entries,
// regardless of order
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for k, v := range m.vals {
		v2, ok := other.vals[k]
		if !ok || v != v2 {
			return false
		}
	}
	return true
}

func (m *Map) Clone() *Map {
	return FromEntries(m.Entries()...)
}
