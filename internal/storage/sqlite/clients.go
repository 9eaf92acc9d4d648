package sqlite

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"projectdash/internal/models"
)

var clientColumns = []string{"id", "name", "email", "phone", "status", "user_id", "created_at", "updated_at"}

// ListClients returns the user's clients ordered by name.
func (s *Store) ListClients(ctx context.Context, userID string, filter models.ClientFilter) ([]models.Client, error) {
	where := sq.And{sq.Eq{"user_id": userID}}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, sq.Or{sq.Like{"name": pattern}, sq.Like{"email": pattern}})
	}

	clients := []models.Client{}
	err := selectAll(ctx, s.db, &clients, sq.Select(clientColumns...).From("clients").
		Where(where).OrderBy("name ASC", "created_at ASC"))
	if err != nil {
		return nil, translate("list clients", err)
	}
	return clients, nil
}

// CreateClient persists a new client for the user.
func (s *Store) CreateClient(ctx context.Context, userID string, in models.ClientInput) (models.Client, error) {
	in.Normalize()
	now := s.now()
	c := models.Client{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Status:    in.Status,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := exec(ctx, s.db, sq.Insert("clients").Columns(clientColumns...).
		Values(c.ID, c.Name, c.Email, c.Phone, c.Status, c.UserID, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return models.Client{}, translate("insert client", err)
	}
	return c, nil
}

// GetClient fetches a client with the projects billed to it.
func (s *Store) GetClient(ctx context.Context, userID, id string) (models.ClientDetail, error) {
	c, err := s.getClient(ctx, s.db, userID, id)
	if err != nil {
		return models.ClientDetail{}, err
	}

	projects := []models.ProjectBrief{}
	err = selectAll(ctx, s.db, &projects,
		sq.Select("id", "title", "status", "priority", "progress", "due_date", "created_at", "updated_at").
			From("projects").
			Where(sq.Eq{"client_id": id, "user_id": userID}).
			OrderBy("updated_at DESC"))
	if err != nil {
		return models.ClientDetail{}, translate("list client projects", err)
	}

	return models.ClientDetail{Client: c, Projects: projects, ProjectCount: len(projects)}, nil
}

// UpdateClient applies a partial update to a client.
func (s *Store) UpdateClient(ctx context.Context, userID, id string, patch models.ClientPatch) (models.Client, error) {
	var updated models.Client
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		c, err := s.getClient(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		patch.ApplyTo(&c)
		c.UpdatedAt = s.now()

		_, err = exec(ctx, tx, sq.Update("clients").
			SetMap(map[string]any{
				"name":       c.Name,
				"email":      c.Email,
				"phone":      c.Phone,
				"status":     c.Status,
				"updated_at": c.UpdatedAt,
			}).
			Where(sq.Eq{"id": id, "user_id": userID}))
		if err != nil {
			return translate("update client", err)
		}
		updated = c
		return nil
	})
	return updated, err
}

// DeleteClient removes a client; its projects keep existing without a client.
func (s *Store) DeleteClient(ctx context.Context, userID, id string) error {
	res, err := exec(ctx, s.db, sq.Delete("clients").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return translate("delete client", err)
	}
	return translate("delete client", affectedOne(res))
}

func (s *Store) getClient(ctx context.Context, q queryer, userID, id string) (models.Client, error) {
	var c models.Client
	err := get(ctx, q, &c, sq.Select(clientColumns...).From("clients").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return models.Client{}, translate("get client", err)
	}
	return c, nil
}

// clientOwned reports whether the client id belongs to the user.
func (s *Store) clientOwned(ctx context.Context, q queryer, userID, id string) error {
	var found string
	err := get(ctx, q, &found, sq.Select("id").From("clients").Where(sq.Eq{"id": id, "user_id": userID}))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrClientNotFound
	}
	return translate("check client", err)
}
