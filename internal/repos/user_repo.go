package repos

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"backoffice/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `u.id, u.email, u.name, u.password_hash, u.role`

func (r *UserRepo) one(query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, r.DB.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ByEmail matches case-insensitively.
func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	return r.one(`SELECT `+userCols+` FROM users u WHERE LOWER(u.email) = LOWER(?)`, email)
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	return r.one(`SELECT `+userCols+` FROM users u WHERE u.id = ?`, id)
}

// BindSession attaches sid to userID, replacing whoever held it before.
func (r *UserRepo) BindSession(sid, userID string) error {
	now := domain.Timestamp(time.Now())
	_, err := r.DB.Exec(r.DB.Rebind(`INSERT INTO sessions(id, user_id, created_at, last_seen)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = excluded.last_seen`),
		sid, userID, now, now)
	return err
}

// SessionUser returns ErrNotFound for unknown or logged-out sessions.
func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	return r.one(`SELECT `+userCols+`
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`, sid)
}

// UnbindSession forgets sid entirely; the cookie value cannot be reused.
func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(r.DB.Rebind(`DELETE FROM sessions WHERE id = ?`), sid)
	return err
}
