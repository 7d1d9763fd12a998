package medication

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

const medCols = `id, name, barcode, description, storage_conditions, contraindications, side_effects,
	strength_amount, strength_unit, volume_per_blister, volume_per_package, volume_unit,
	price_per_blister, image_url, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.Barcode, &m.Description, &m.StorageConditions, &m.Contraindications, &m.SideEffects,
		&m.StrengthAmount, &m.StrengthUnit, &m.VolumePerBlister, &m.VolumePerPackage, &m.VolumeUnit,
		&m.PricePerBlister, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medications (name, barcode, description, storage_conditions, contraindications, side_effects,
			strength_amount, strength_unit, volume_per_blister, volume_per_package, volume_unit,
			price_per_blister, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at, updated_at`,
		m.Name, m.Barcode, m.Description, m.StorageConditions, m.Contraindications, m.SideEffects,
		m.StrengthAmount, m.StrengthUnit, m.VolumePerBlister, m.VolumePerPackage, m.VolumeUnit,
		m.PricePerBlister, m.ImageURL).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medications WHERE id = $1`, id))
}

func (r *repoPG) GetByBarcode(ctx context.Context, barcode string) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medications WHERE barcode = $1`, barcode))
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medications SET name=$2, barcode=$3, description=$4, storage_conditions=$5,
			contraindications=$6, side_effects=$7, strength_amount=$8, strength_unit=$9,
			volume_per_blister=$10, volume_per_package=$11, volume_unit=$12,
			price_per_blister=$13, image_url=$14, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Barcode, m.Description, m.StorageConditions,
		m.Contraindications, m.SideEffects, m.StrengthAmount, m.StrengthUnit,
		m.VolumePerBlister, m.VolumePerPackage, m.VolumeUnit,
		m.PricePerBlister, m.ImageURL)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, nameFilter string, limit, offset int) ([]*Medication, int, error) {
	filter := "%" + nameFilter + "%"

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medications WHERE name ILIKE $1`, filter).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+medCols+` FROM medications WHERE name ILIKE $1
		ORDER BY name LIMIT $2 OFFSET $3`, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

type stockRepoPG struct{ pool *pgxpool.Pool }

func NewStockRepoPG(pool *pgxpool.Pool) StockRepository {
	return &stockRepoPG{pool: pool}
}

func (r *stockRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *stockRepoPG) Create(ctx context.Context, s *Stock) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_stock (medication_id, workplace_id, quantity, production_date, expiration_date)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, received_at`,
		s.MedicationID, s.WorkplaceID, s.Quantity, s.ProductionDate, s.ExpirationDate).
		Scan(&s.ID, &s.ReceivedAt)
}

func (r *stockRepoPG) ListByMedication(ctx context.Context, medicationID int64, limit, offset int) ([]*Stock, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medication_stock WHERE medication_id = $1`, medicationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, medication_id, workplace_id, quantity, production_date, expiration_date, received_at
		FROM medication_stock WHERE medication_id = $1
		ORDER BY received_at DESC LIMIT $2 OFFSET $3`, medicationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Stock
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.ID, &s.MedicationID, &s.WorkplaceID, &s.Quantity,
			&s.ProductionDate, &s.ExpirationDate, &s.ReceivedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}

func (r *stockRepoPG) TotalQuantity(ctx context.Context, medicationID int64) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM medication_stock WHERE medication_id = $1`,
		medicationID).Scan(&total)
	return total, err
}

func (r *stockRepoPG) SetQuantity(ctx context.Context, stockID int64, quantity int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medication_stock SET quantity = $2 WHERE id = $1`, stockID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
