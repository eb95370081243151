package contacts

// Action is a user-driven FilterState transition.
type Action interface {
	apply(FilterState) FilterState
}

// SetSearch replaces the search query.
type SetSearch struct{ Query string }

// AppendSearch appends typed text to the query.
type AppendSearch struct{ Text string }

// BackspaceSearch drops the last rune of the query.
type BackspaceSearch struct{}

// ClearSearch empties the query.
type ClearSearch struct{}

// SetOnlineOnly sets the online-only toggle.
type SetOnlineOnly struct{ Enabled bool }

// ToggleOnlineOnly flips the online-only toggle.
type ToggleOnlineOnly struct{}

func (a SetSearch) apply(s FilterState) FilterState {
	s.SearchQuery = a.Query
	return s
}

func (a AppendSearch) apply(s FilterState) FilterState {
	s.SearchQuery += a.Text
	return s
}

func (BackspaceSearch) apply(s FilterState) FilterState {
	runes := []rune(s.SearchQuery)
	if len(runes) == 0 {
		return s
	}
	s.SearchQuery = string(runes[:len(runes)-1])
	return s
}

func (ClearSearch) apply(s FilterState) FilterState {
	s.SearchQuery = ""
	return s
}

func (a SetOnlineOnly) apply(s FilterState) FilterState {
	s.OnlineOnly = a.Enabled
	return s
}

func (ToggleOnlineOnly) apply(s FilterState) FilterState {
	s.OnlineOnly = !s.OnlineOnly
	return s
}

// Reduce applies action to state. A nil action leaves state unchanged.
func Reduce(state FilterState, action Action) FilterState {
	if action == nil {
		return state
	}
	return action.apply(state)
}
