package contacts

import (
	"sort"

	"github.com/tOgg1/chatline/internal/chat"
)

// IDSet is an immutable-by-convention set of user ids.
type IDSet map[chat.UserID]struct{}

// NewIDSet builds a set from ids, skipping empty values.
func NewIDSet(ids ...chat.UserID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership. A nil set contains nothing.
func (s IDSet) Has(id chat.UserID) bool {
	if s == nil {
		return false
	}
	_, ok := s[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []chat.UserID {
	out := make([]chat.UserID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Without returns a copy of s minus id.
func (s IDSet) Without(id chat.UserID) IDSet {
	out := make(IDSet, len(s))
	for member := range s {
		if member == id {
			continue
		}
		out[member] = struct{}{}
	}
	return out
}

// Clone returns a copy of s.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
