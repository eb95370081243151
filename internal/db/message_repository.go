package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tOgg1/chatline/internal/chat"
)

// MessageRepository handles message persistence.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// MessageQuery filters List.
type MessageQuery struct {
	// Involving limits results to messages sent or received by this user.
	Involving chat.UserID

	// Between, with Involving, limits results to one conversation.
	Between chat.UserID
}

// Create stores msg, assigning a ULID and timestamp when missing. Both users
// must exist.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	if msg == nil {
		return chat.ErrInvalidMessage
	}
	if err := chat.ValidateMessage(*msg); err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.ID == "" {
		msg.ID = ulid.MustNew(ulid.Timestamp(msg.CreatedAt), ulid.DefaultEntropy()).String()
	}

	return r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		for _, id := range []chat.UserID{msg.SenderID, msg.ReceiverID} {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id.String()).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrUserNotFound, id)
			}
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, sender_id, receiver_id, text, image, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ID, msg.SenderID.String(), msg.ReceiverID.String(), msg.Text, msg.Image, formatTime(msg.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

// List returns messages oldest first.
func (r *MessageRepository) List(ctx context.Context, q MessageQuery) ([]chat.Message, error) {
	query := `SELECT id, sender_id, receiver_id, text, image, created_at FROM messages`
	var args []any
	switch {
	case q.Involving != "" && q.Between != "":
		query += ` WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`
		args = append(args, q.Involving.String(), q.Between.String(), q.Between.String(), q.Involving.String())
	case q.Involving != "":
		query += ` WHERE sender_id = ? OR receiver_id = ?`
		args = append(args, q.Involving.String(), q.Involving.String())
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		var msg chat.Message
		var sender, receiver, created string
		if err := rows.Scan(&msg.ID, &sender, &receiver, &msg.Text, &msg.Image, &created); err != nil {
			return nil, err
		}
		msg.SenderID = chat.UserID(sender)
		msg.ReceiverID = chat.UserID(receiver)
		if msg.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
