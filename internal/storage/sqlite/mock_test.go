package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdash/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlite3"), nil), mock
}

func TestListClientsQueryFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, phone, status, user_id, created_at, updated_at FROM clients")).
		WithArgs("u1").
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.ListClients(context.Background(), "u1", models.ClientFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list clients")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTaskNothingAffected(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteTask(context.Background(), "u1", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClientRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "phone", "status", "user_id", "created_at", "updated_at"}).
		AddRow("c1", "Acme", nil, nil, "active", "u1", s.now(), s.now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE")).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE clients SET")).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, err := s.UpdateClient(context.Background(), "u1", "c1", models.ClientPatch{Name: ptr("New")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update client")
	assert.NoError(t, mock.ExpectationsWereMet())
}
