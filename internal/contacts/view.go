package contacts

import "github.com/tOgg1/chatline/internal/chat"

// Inputs is everything the selector reads besides FilterState.
type Inputs struct {
	Users            []chat.User
	Messages         []chat.Message
	LocalID          chat.UserID
	Presence         IDSet
	Selected         chat.UserID
	DirectoryLoading bool
	MessagesLoading  bool
	Notice           string

	// ContactIDs overrides the index computed from Messages when non-nil.
	ContactIDs IDSet
}

// Row is one rendered contact.
type Row struct {
	User     chat.User
	Online   bool
	Selected bool
}

// View is the derived render list.
type View struct {
	Filter          FilterState
	Rows            []Row
	OnlineCount     int
	Loading         bool
	MessagesLoading bool
	Selected        chat.UserID
	Notice          string
}

// Empty reports whether there is nothing to list.
func (v View) Empty() bool { return len(v.Rows) == 0 }

// Users returns the users behind the rows, in order.
func (v View) Users() []chat.User {
	out := make([]chat.User, 0, len(v.Rows))
	for _, row := range v.Rows {
		out = append(out, row.User)
	}
	return out
}

// SelectedIndex returns the row index of the selected contact or -1.
func (v View) SelectedIndex() int {
	for idx, row := range v.Rows {
		if row.Selected {
			return idx
		}
	}
	return -1
}

// Derive computes the sidebar view for state and in.
func Derive(state FilterState, in Inputs) View {
	contactIDs := in.ContactIDs
	if contactIDs == nil {
		contactIDs = ConversationIndex(in.Messages, in.LocalID)
	}
	users := FilterContacts(in.Users, contactIDs, state, in.Presence)

	rows := make([]Row, 0, len(users))
	for _, user := range users {
		rows = append(rows, Row{
			User:     user,
			Online:   in.Presence.Has(user.ID),
			Selected: in.Selected != "" && user.ID == in.Selected,
		})
	}
	return View{
		Filter:          state,
		Rows:            rows,
		OnlineCount:     OnlineCount(in.Presence, in.LocalID),
		Loading:         in.DirectoryLoading,
		MessagesLoading: in.MessagesLoading,
		Selected:        in.Selected,
		Notice:          in.Notice,
	}
}

// OnlineCount is the number of online users other than localID.
func OnlineCount(presence IDSet, localID chat.UserID) int {
	n := presence.Len()
	if localID != "" && presence.Has(localID) {
		n--
	}
	return n
}
