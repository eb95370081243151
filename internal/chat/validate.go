package chat

import (
	"fmt"
	"strings"
)

const (
	MaxFullNameLength = 120
	MaxTextLength     = 4000
)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUserID rejects empty or whitespace-padded ids.
func ValidateUserID(id UserID) error {
	raw := string(id)
	if strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) != raw {
		return ErrInvalidUserID
	}
	return nil
}

// ValidateUser checks a directory entry before it is stored.
func ValidateUser(user User) error {
	if err := ValidateUserID(user.ID); err != nil {
		return err
	}
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		return fmt.Errorf("%w: full name required", ErrInvalidUser)
	}
	if len(name) > MaxFullNameLength {
		return fmt.Errorf("%w: full name exceeds %d chars", ErrInvalidUser, MaxFullNameLength)
	}
	email := NormalizeEmail(user.Email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: %s", ErrInvalidEmail, user.Email)
	}
	return nil
}

// ValidateMessage checks a message before it is stored.
func ValidateMessage(message Message) error {
	if err := ValidateUserID(message.SenderID); err != nil {
		return fmt.Errorf("%w: sender: %v", ErrInvalidMessage, err)
	}
	if err := ValidateUserID(message.ReceiverID); err != nil {
		return fmt.Errorf("%w: receiver: %v", ErrInvalidMessage, err)
	}
	if message.SenderID == message.ReceiverID {
		return ErrSelfMessage
	}
	if strings.TrimSpace(message.Text) == "" && strings.TrimSpace(message.Image) == "" {
		return ErrEmptyMessage
	}
	if len(message.Text) > MaxTextLength {
		return fmt.Errorf("%w: text exceeds %d chars", ErrInvalidMessage, MaxTextLength)
	}
	return nil
}
