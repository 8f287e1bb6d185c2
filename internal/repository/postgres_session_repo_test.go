package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hitoshi/storefront/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresSessionRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	now := time.Now()
	s := &model.Session{
		ID: "sess-1",
		Identity: model.Identity{
			UserID:   "user-1",
			Name:     "Alice",
			Email:    "alice@example.com",
			Provider: model.ProviderPassword,
		},
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions (id, user_id, name, email, provider, expires_at, created_at)`)).
		WithArgs("sess-1", "user-1", "Alice", "alice@example.com", "password", s.ExpiresAt, s.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSessionRepo_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "email", "provider", "expires_at", "created_at"}).
		AddRow("sess-1", "google:123", "Bob", "bob@example.com", "google", now.Add(time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE id = $1 AND expires_at > now()`)).
		WithArgs("sess-1").
		WillReturnRows(rows)

	s, err := repo.FindByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Identity.UserID != "google:123" || s.Identity.Provider != "google" || s.Identity.Email != "bob@example.com" {
		t.Errorf("identity = %+v", s.Identity)
	}
}

func TestPostgresSessionRepo_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	s, err := repo.FindByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Errorf("期限切れ・存在しないセッションで nil 以外が返された: %+v", s)
	}
}

func TestPostgresSessionRepo_FindByID_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions`)).
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.FindByID(context.Background(), "sess-1"); err == nil {
		t.Fatal("エラーが返されるべき")
	}
}

func TestPostgresSessionRepo_DeleteByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1`)).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteByID(context.Background(), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresSessionRepo_DeleteByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE user_id = $1`)).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByUserID(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostgresSessionRepo_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= now()`)).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("deleted = %d, want 5", n)
	}
}
