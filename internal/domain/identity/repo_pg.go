package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dosehub/dosehub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, email, username, password_hash, email_confirmed, phone_confirmed, roles,
	confirmation_code, code_expires_at, reset_token, reset_token_expires_at,
	google_subject, banned_until, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.EmailConfirmed, &u.PhoneConfirmed, &u.Roles,
		&u.ConfirmationCode, &u.CodeExpiresAt, &u.ResetToken, &u.ResetTokenExpiresAt,
		&u.GoogleSubject, &u.BannedUntil, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO auth_users (email, username, password_hash, email_confirmed, phone_confirmed, roles,
			confirmation_code, code_expires_at, google_subject)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		u.Email, u.Username, u.PasswordHash, u.EmailConfirmed, u.PhoneConfirmed, u.Roles,
		u.ConfirmationCode, u.CodeExpiresAt, u.GoogleSubject).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM auth_users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM auth_users WHERE lower(email) = lower($1)`, email))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM auth_users WHERE lower(username) = lower($1)`, username))
}

func (r *userRepoPG) GetByGoogleSubject(ctx context.Context, subject string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM auth_users WHERE google_subject = $1`, subject))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE auth_users SET email=$2, username=$3, password_hash=$4, email_confirmed=$5,
			phone_confirmed=$6, roles=$7, confirmation_code=$8, code_expires_at=$9,
			reset_token=$10, reset_token_expires_at=$11, google_subject=$12, banned_until=$13,
			updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.EmailConfirmed,
		u.PhoneConfirmed, u.Roles, u.ConfirmationCode, u.CodeExpiresAt,
		u.ResetToken, u.ResetTokenExpiresAt, u.GoogleSubject, u.BannedUntil)
	return err
}

type refreshTokenRepoPG struct{ pool *pgxpool.Pool }

func NewRefreshTokenRepoPG(pool *pgxpool.Pool) RefreshTokenRepository {
	return &refreshTokenRepoPG{pool: pool}
}

func (r *refreshTokenRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *refreshTokenRepoPG) Rotate(ctx context.Context, t *RefreshToken) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, device_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (device_id, user_id)
		DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		t.UserID, t.DeviceID, t.Token, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *refreshTokenRepoPG) Find(ctx context.Context, userID int64, deviceID string) (*RefreshToken, error) {
	var t RefreshToken
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, device_id, token, expires_at, created_at, updated_at
		FROM refresh_tokens WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID).
		Scan(&t.ID, &t.UserID, &t.DeviceID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *refreshTokenRepoPG) Revoke(ctx context.Context, userID int64, deviceID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
