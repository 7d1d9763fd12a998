package device

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const deviceCols = `id, name, workplace_id, api_key, created_at, updated_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.Name, &d.WorkplaceID, &d.APIKey, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Device) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO devices (name, workplace_id, api_key)
		VALUES ($1,$2,$3)
		RETURNING id, created_at, updated_at`,
		d.Name, d.WorkplaceID, d.APIKey).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Device, error) {
	return scanDevice(r.conn(ctx).QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Device, error) {
	return scanDevice(r.conn(ctx).QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE name = $1`, name))
}

func (r *repoPG) GetByAPIKey(ctx context.Context, apiKey string) (*Device, error) {
	return scanDevice(r.conn(ctx).QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE api_key = $1`, apiKey))
}

func (r *repoPG) Update(ctx context.Context, d *Device) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE devices SET name=$2, workplace_id=$3, api_key=$4, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.WorkplaceID, d.APIKey)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Device, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM devices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id, d.name, d.workplace_id, d.api_key, d.created_at, d.updated_at,
		       MAX(l.created_at) AS last_activity
		FROM devices d
		LEFT JOIN device_logs l ON l.device_id = d.id
		GROUP BY d.id
		ORDER BY d.name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.Name, &d.WorkplaceID, &d.APIKey, &d.CreatedAt, &d.UpdatedAt,
			&d.LastActivity); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}

type logRepoPG struct{ pool *pgxpool.Pool }

func NewLogRepoPG(pool *pgxpool.Pool) LogRepository {
	return &logRepoPG{pool: pool}
}

func (r *logRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *logRepoPG) Append(ctx context.Context, l *Log) error {
	if l.Severity == "" {
		l.Severity = SeverityInfo
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO device_logs (device_id, severity, description)
		VALUES ($1,$2,$3)
		RETURNING id, created_at`,
		l.DeviceID, l.Severity, l.Description).
		Scan(&l.ID, &l.CreatedAt)
}

func (r *logRepoPG) ListByDevice(ctx context.Context, deviceID int64, limit, offset int) ([]*Log, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM device_logs WHERE device_id = $1`, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, device_id, severity, description, created_at
		FROM device_logs WHERE device_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, deviceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.Severity, &l.Description, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &l)
	}
	return items, total, rows.Err()
}
