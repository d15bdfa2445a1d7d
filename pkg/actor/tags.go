package actor

import (
	"encoding/json"
	"slices"
)

// Tags is an unordered set of string tags (traits, items, status flags).
type Tags map[string]struct{}

// NewTags builds a tag set from the given values. Duplicates and empty strings are dropped.
func NewTags(values ...string) Tags {
	t := make(Tags, len(values))
	for _, v := range values {
		t.Add(v)
	}
	return t
}

// Has reports whether tag is in the set.
func (t Tags) Has(tag string) bool {
	_, ok := t[tag]
	return ok
}

// HasAny reports whether at least one of the given tags is in the set.
// An empty list never matches.
func (t Tags) HasAny(tags []string) bool {
	for _, tag := range tags {
		if t.Has(tag) {
			return true
		}
	}
	return false
}

// Add inserts tag, allocating the set on first use.
func (t *Tags) Add(tag string) {
	if tag == "" {
		return
	}
	if *t == nil {
		*t = make(Tags)
	}
	(*t)[tag] = struct{}{}
}

// Remove deletes tag if present.
func (t Tags) Remove(tag string) {
	delete(t, tag)
}

// Sorted returns the tags in lexical order.
func (t Tags) Sorted() []string {
	out := make([]string, 0, len(t))
	for tag := range t {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// First returns the lexically smallest tag, or "" for an empty set.
func (t Tags) First() string {
	if len(t) == 0 {
		return ""
	}
	return t.Sorted()[0]
}

// MarshalJSON encodes the set as a sorted array so output is stable.
func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Sorted())
}

// UnmarshalJSON accepts an array of strings.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*t = NewTags(values...)
	return nil
}
