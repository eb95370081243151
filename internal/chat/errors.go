package chat

import "errors"

var (
	ErrInvalidUser    = errors.New("invalid user")
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrInvalidMessage = errors.New("invalid message")
	ErrEmptyMessage   = errors.New("message has no text or image")
	ErrSelfMessage    = errors.New("sender and receiver are the same user")
)
