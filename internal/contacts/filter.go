package contacts

import (
	"strings"

	"github.com/tOgg1/chatline/internal/chat"
)

// FilterState is the sidebar's local, user-driven filter.
type FilterState struct {
	SearchQuery string `json:"search_query,omitempty"`
	OnlineOnly  bool   `json:"online_only,omitempty"`
}

// DefaultFilterState is the state a freshly mounted sidebar starts with.
func DefaultFilterState() FilterState {
	return FilterState{}
}

// Searching reports whether a search query is active.
func (f FilterState) Searching() bool {
	return f.SearchQuery != ""
}

// FilterContacts narrows allUsers in three stages: text match, conversation
// relevance (skipped while searching) and presence. Directory order is kept.
func FilterContacts(allUsers []chat.User, contactIDs IDSet, filter FilterState, presence IDSet) []chat.User {
	query := strings.ToLower(filter.SearchQuery)
	out := make([]chat.User, 0, len(allUsers))
	for _, user := range allUsers {
		if !matchesSearch(user, query) {
			continue
		}
		if query == "" && !contactIDs.Has(user.ID) {
			continue
		}
		if filter.OnlineOnly && !presence.Has(user.ID) {
			continue
		}
		out = append(out, user)
	}
	return out
}

// matchesSearch expects query to be lowercased already.
func matchesSearch(user chat.User, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(user.FullName), query) ||
		strings.Contains(strings.ToLower(user.Email), query)
}
