package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/chatline/internal/chat"
)

// User repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this email already exists")
)

// UserRepository handles user persistence.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores user, assigning a uuid when the id is empty. The email is
// normalized before storage.
func (r *UserRepository) Create(ctx context.Context, user *chat.User) error {
	if user == nil {
		return chat.ErrInvalidUser
	}
	if user.ID.IsZero() {
		user.ID = chat.UserID(uuid.NewString())
	}
	user.FullName = strings.TrimSpace(user.FullName)
	user.Email = chat.NormalizeEmail(user.Email)
	if err := chat.ValidateUser(*user); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, profile_pic, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID.String(), user.FullName, user.Email, user.ProfilePic, formatTime(time.Now()))
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get returns the user with id.
func (r *UserRepository) Get(ctx context.Context, id chat.UserID) (chat.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, profile_pic FROM users WHERE id = ?
	`, id.String())
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.User{}, ErrUserNotFound
	}
	return user, err
}

// List returns every user except the one with id exclude, in creation order.
// An empty exclude lists everyone.
func (r *UserRepository) List(ctx context.Context, exclude chat.UserID) ([]chat.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, full_name, email, profile_pic FROM users
		WHERE id != ?
		ORDER BY created_at, id
	`, exclude.String())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]chat.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (chat.User, error) {
	var user chat.User
	var id string
	if err := row.Scan(&id, &user.FullName, &user.Email, &user.ProfilePic); err != nil {
		return chat.User{}, err
	}
	user.ID = chat.UserID(id)
	return user, nil
}
