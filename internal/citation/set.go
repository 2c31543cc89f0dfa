package citation

import "encoding/json"

// Set is a deduplicated collection of citation strings.
// Membership is exact and case-sensitive. Items are kept in first-seen order
// for display; order has no meaning for set operations.
type Set struct {
	items []string
	index map[string]struct{}
}

// NewSet creates a set holding the given items, dropping duplicates.
func NewSet(items ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts item and reports whether it was not already present.
func (s *Set) Add(item string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Contains reports whether item is in the set.
func (s *Set) Contains(item string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[item]
	return ok
}

// Len returns the number of distinct items.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Empty reports whether the set has no items.
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// Items returns a copy of the items in first-seen order.
func (s *Set) Items() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	if s == nil {
		return NewSet()
	}
	return NewSet(s.items...)
}

// Intersect returns the items of s that are also in other, in s's order.
func (s *Set) Intersect(other *Set) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for _, it := range s.items {
		if other.Contains(it) {
			out.Add(it)
		}
	}
	return out
}

// Difference returns the items of s that are not in other, in s's order.
func (s *Set) Difference(other *Set) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for _, it := range s.items {
		if !other.Contains(it) {
			out.Add(it)
		}
	}
	return out
}

// Equal reports whether s and other hold the same items, ignoring order.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, it := range s.Items() {
		if !other.Contains(it) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a JSON array in first-seen order.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes a JSON array, collapsing duplicates.
func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = *NewSet(items...)
	return nil
}
