// Package contacts derives the contact list shown in the sidebar from the user
// directory, the message history and the live presence set.
package contacts

import "github.com/tOgg1/chatline/internal/chat"

// ConversationIndex returns the ids of every user that exchanged at least one
// message with localID. The result never contains localID itself. An empty
// localID means nobody is signed in yet and yields an empty set.
func ConversationIndex(messages []chat.Message, localID chat.UserID) IDSet {
	out := make(IDSet)
	if localID == "" {
		return out
	}
	for _, msg := range messages {
		other, ok := msg.Counterpart(localID)
		if !ok || other == "" || other == localID {
			continue
		}
		out[other] = struct{}{}
	}
	return out
}
