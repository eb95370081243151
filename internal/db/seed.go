package db

import (
	"context"
	"fmt"
	"time"

	"github.com/tOgg1/chatline/internal/chat"
)

var seedUsers = []chat.User{
	{FullName: "Ada Lovelace", Email: "ada@chatline.dev"},
	{FullName: "Grace Hopper", Email: "grace@chatline.dev"},
	{FullName: "Alan Turing", Email: "alan@chatline.dev"},
	{FullName: "Katherine Johnson", Email: "katherine@chatline.dev"},
	{FullName: "Linus Torvalds", Email: "linus@chatline.dev"},
	{FullName: "Margaret Hamilton", Email: "margaret@chatline.dev"},
}

// seedConversations pairs seedUsers by index.
var seedConversations = []struct {
	from, to int
	text     string
}{
	{0, 1, "Did the compiler finish?"},
	{1, 0, "It did. Found a moth in relay 70."},
	{0, 2, "Can machines think?"},
	{2, 0, "Let's play a game and find out."},
	{3, 0, "Trajectory numbers are checked."},
	{4, 1, "Patch incoming."},
}

// Seed fills an empty database with demo users and conversations. It does
// nothing when users already exist.
func Seed(ctx context.Context, db *DB) ([]chat.User, error) {
	users := NewUserRepository(db)
	count, err := users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return users.List(ctx, "")
	}

	created := make([]chat.User, 0, len(seedUsers))
	for _, tmpl := range seedUsers {
		user := tmpl
		if err := users.Create(ctx, &user); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", tmpl.Email, err)
		}
		created = append(created, user)
	}

	messages := NewMessageRepository(db)
	base := time.Now().UTC().Add(-time.Hour)
	for idx, conv := range seedConversations {
		msg := chat.Message{
			SenderID:   created[conv.from].ID,
			ReceiverID: created[conv.to].ID,
			Text:       conv.text,
			CreatedAt:  base.Add(time.Duration(idx) * time.Minute),
		}
		if err := messages.Create(ctx, &msg); err != nil {
			return nil, fmt.Errorf("seed message %d: %w", idx, err)
		}
	}
	return created, nil
}
