package chat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserDisplayNameFallbacks(t *testing.T) {
	require.Equal(t, "Ada Lovelace", User{ID: "u1", FullName: " Ada Lovelace ", Email: "ada@example.com"}.DisplayName())
	require.Equal(t, "ada@example.com", User{ID: "u1", Email: "ada@example.com"}.DisplayName())
	require.Equal(t, "u1", User{ID: "u1"}.DisplayName())
}

func TestUserAvatarURLDefaults(t *testing.T) {
	require.Equal(t, DefaultAvatar, User{}.AvatarURL())
	require.Equal(t, "https://cdn/p.png", User{ProfilePic: "https://cdn/p.png"}.AvatarURL())
}

func TestUserDecodeToleratesMissingFields(t *testing.T) {
	var users []User
	require.NoError(t, json.Unmarshal([]byte(`[{"_id":"a"},{"_id":"b","fullName":null,"email":"b@x.io"},null]`), &users))
	require.Len(t, users, 3)
	require.Equal(t, UserID("a"), users[0].ID)
	require.Equal(t, "", users[0].FullName)
	require.Equal(t, "", users[1].FullName)
	require.Equal(t, UserID(""), users[2].ID)
}

func TestMessageCounterpart(t *testing.T) {
	msg := Message{SenderID: "me", ReceiverID: "ann"}

	other, ok := msg.Counterpart("me")
	require.True(t, ok)
	require.Equal(t, UserID("ann"), other)

	other, ok = msg.Counterpart("ann")
	require.True(t, ok)
	require.Equal(t, UserID("me"), other)

	_, ok = msg.Counterpart("bob")
	require.False(t, ok)
	_, ok = msg.Counterpart("")
	require.False(t, ok)

	require.True(t, msg.Involves("ann"))
	require.False(t, msg.Involves(""))
}

func TestValidateUser(t *testing.T) {
	require.NoError(t, ValidateUser(User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}))
	require.ErrorIs(t, ValidateUser(User{ID: " u1", FullName: "Ada", Email: "ada@example.com"}), ErrInvalidUserID)
	require.ErrorIs(t, ValidateUser(User{ID: "u1", Email: "ada@example.com"}), ErrInvalidUser)
	require.ErrorIs(t, ValidateUser(User{ID: "u1", FullName: "Ada", Email: "ada"}), ErrInvalidEmail)
}

func TestValidateMessage(t *testing.T) {
	require.NoError(t, ValidateMessage(Message{SenderID: "a", ReceiverID: "b", Text: "hi"}))
	require.NoError(t, ValidateMessage(Message{SenderID: "a", ReceiverID: "b", Image: "/img.png"}))
	require.ErrorIs(t, ValidateMessage(Message{SenderID: "a", ReceiverID: "a", Text: "hi"}), ErrSelfMessage)
	require.ErrorIs(t, ValidateMessage(Message{SenderID: "a", ReceiverID: "b", Text: "  "}), ErrEmptyMessage)

	err := ValidateMessage(Message{SenderID: "", ReceiverID: "b", Text: "hi"})
	require.True(t, errors.Is(err, ErrInvalidMessage))
}
