package sqlite

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"projectdash/internal/models"
)

var userColumns = []string{"id", "email", "name", "password_hash", "created_at"}

// CreateUser stores a new account with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.User{}, fmt.Errorf("user email must not be empty")
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	_, err := exec(ctx, s.db, sq.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt))
	if err != nil {
		return models.User{}, translate("insert user", err)
	}
	return u, nil
}

// GetUserByEmail looks up an account for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := get(ctx, s.db, &u, sq.Select(userColumns...).From("users").
		Where(sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))}))
	if err != nil {
		return models.User{}, translate("get user", err)
	}
	return u, nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := get(ctx, s.db, &u, sq.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return models.User{}, translate("get user", err)
	}
	return u, nil
}
