package query

import (
	"net/url"
	"sort"
	"strings"
)

// State is an immutable set of query keys, each holding a set of values.
// Every mutating method returns a new State.
type State struct {
	values map[string]map[string]struct{}
}

// New builds a State from a key to values map. Empty values are dropped.
func New(values map[string][]string) State {
	return State{}.Clone(values)
}

// Parse reads a query string such as "a=b&a=c&d=e". Only the first '=' of
// an item separates key and value; an item without one is a key with an
// empty value. Values are percent-decoded and '+' is read as a space.
func Parse(raw string) State {
	raw = strings.TrimPrefix(raw, "?")
	st := State{values: make(map[string]map[string]struct{})}
	for _, part := range strings.Split(raw, "&") {
		key, value, _ := strings.Cut(part, "=")
		if key == "" {
			continue
		}
		value = unescape(value)
		set, ok := st.values[key]
		if !ok {
			set = make(map[string]struct{})
			st.values[key] = set
		}
		set[value] = struct{}{}
	}
	return st
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

// Len reports the number of keys.
func (s State) Len() int { return len(s.values) }

// Keys returns the keys in ascending order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the sorted values of key.
func (s State) Get(key string) ([]string, bool) {
	set, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return sortedSet(set), true
}

// Has reports whether key holds value.
func (s State) Has(key, value string) bool {
	_, ok := s.values[key][value]
	return ok
}

// Set replaces the values of key. Setting no non-empty value removes the key.
func (s State) Set(key string, values ...string) State {
	return s.Clone(map[string][]string{key: values})
}

// RemoveValue drops one value from key, removing the key once it is empty.
func (s State) RemoveValue(key, value string) State {
	set, ok := s.values[key]
	if !ok {
		return s
	}
	remaining := make([]string, 0, len(set))
	for v := range set {
		if v != value {
			remaining = append(remaining, v)
		}
	}
	return s.Clone(map[string][]string{key: remaining})
}

// Clone copies the state without the excluded keys and then applies
// overwrite. Overwritten values are trimmed and blank ones dropped; a key
// left with no values is removed.
func (s State) Clone(overwrite map[string][]string, exclude ...string) State {
	out := make(map[string]map[string]struct{}, len(s.values)+len(overwrite))
	for k, set := range s.values {
		if contains(exclude, k) {
			continue
		}
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out[k] = cp
	}

	for k, values := range overwrite {
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				set[v] = struct{}{}
			}
		}
		if len(set) == 0 {
			delete(out, k)
			continue
		}
		out[k] = set
	}
	return State{values: out}
}

// Merge overwrites the keys of s with those present in other.
func (s State) Merge(other State) State {
	overwrite := make(map[string][]string, len(other.values))
	for k, set := range other.values {
		overwrite[k] = sortedSet(set)
	}
	return s.Clone(overwrite)
}

// ExcludeInternals drops keys containing an underscore.
func (s State) ExcludeInternals() State {
	out := make(map[string]map[string]struct{}, len(s.values))
	for k, set := range s.values {
		if !strings.Contains(k, "_") {
			out[k] = set
		}
	}
	return State{values: out}
}

// Encode renders the state with keys and values in ascending order and every
// non-alphanumeric byte of a value percent-encoded.
func (s State) Encode() string {
	return s.render(true)
}

// EncodeRaw renders the state like Encode but leaves values unescaped.
func (s State) EncodeRaw() string {
	return s.render(false)
}

func (s State) render(escape bool) string {
	var b strings.Builder
	for _, k := range s.Keys() {
		for _, v := range sortedSet(s.values[k]) {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if escape {
				v = Escape(v)
			}
			b.WriteString(v)
		}
	}
	return b.String()
}

func (s State) String() string { return s.Encode() }

// Values converts the state to url.Values with sorted values per key.
func (s State) Values() url.Values {
	out := make(url.Values, len(s.values))
	for k, set := range s.values {
		out[k] = sortedSet(set)
	}
	return out
}

// Equal reports whether both states hold the same keys and values.
func (s State) Equal(other State) bool {
	if len(s.values) != len(other.values) {
		return false
	}
	for k, set := range s.values {
		os, ok := other.values[k]
		if !ok || len(os) != len(set) {
			return false
		}
		for v := range set {
			if _, ok := os[v]; !ok {
				return false
			}
		}
	}
	return true
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
