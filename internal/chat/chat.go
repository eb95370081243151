// Package chat defines the user and message records shared by the chatline
// client and its development backend.
package chat

import (
	"strings"
	"time"
)

// DefaultAvatar is rendered for users without a profile picture.
const DefaultAvatar = "/avatar.png"

// UserID identifies a registered user. It is opaque to the client.
type UserID string

func (id UserID) String() string { return string(id) }

// IsZero reports whether the id is empty.
func (id UserID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// User is a directory entry.
type User struct {
	ID         UserID `json:"_id"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// DisplayName returns the full name, falling back to the email and then the id.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		return email
	}
	return string(u.ID)
}

// AvatarURL returns the profile picture or DefaultAvatar.
func (u User) AvatarURL() string {
	if pic := strings.TrimSpace(u.ProfilePic); pic != "" {
		return pic
	}
	return DefaultAvatar
}

// Message is a direct message between two users.
type Message struct {
	ID         string    `json:"_id,omitempty"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Involves reports whether id is the sender or the receiver.
func (m Message) Involves(id UserID) bool {
	if id == "" {
		return false
	}
	return m.SenderID == id || m.ReceiverID == id
}

// Counterpart returns the other party of the message relative to local.
// It reports false when local is not a party.
func (m Message) Counterpart(local UserID) (UserID, bool) {
	switch {
	case local == "":
		return "", false
	case m.SenderID == local:
		return m.ReceiverID, true
	case m.ReceiverID == local:
		return m.SenderID, true
	default:
		return "", false
	}
}
