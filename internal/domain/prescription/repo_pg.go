package prescription

import (
	"context"
	"errors"
	"time"

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

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO prescriptions (patient_id, doctor_id, start_date, end_date)
			VALUES ($1,$2,$3,$4)
			RETURNING id, created_at, updated_at`,
			p.PatientID, p.DoctorID, p.StartDate, p.EndDate).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		for _, li := range p.Medications {
			li.PrescriptionID = p.ID
			if err := r.insertLineItem(ctx, li); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) insertLineItem(ctx context.Context, li *LineItem) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription_medications (prescription_id, medication_id, dosage,
			quantity_of_dosages, period_in_days, discount, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		li.PrescriptionID, li.MedicationID, li.Dosage,
		li.QuantityOfDosages, li.PeriodInDays, li.Discount, li.Description).
		Scan(&li.ID)
}

func (r *repoPG) loadLineItems(ctx context.Context, p *Prescription) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, medication_id, dosage, quantity_of_dosages,
			period_in_days, discount, description
		FROM prescription_medications WHERE prescription_id = $1 ORDER BY id`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.PrescriptionID, &li.MedicationID, &li.Dosage,
			&li.QuantityOfDosages, &li.PeriodInDays, &li.Discount, &li.Description); err != nil {
			return err
		}
		p.Medications = append(p.Medications, &li)
	}
	return rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

const rxCols = `id, patient_id, doctor_id, start_date, end_date, created_at, updated_at`

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE prescriptions SET patient_id=$2, doctor_id=$3, start_date=$4, end_date=$5, updated_at=NOW()
			WHERE id = $1`,
			p.ID, p.PatientID, p.DoctorID, p.StartDate, p.EndDate)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		// Replace line items wholesale.
		if _, err := r.conn(ctx).Exec(ctx,
			`DELETE FROM prescription_medications WHERE prescription_id = $1`, p.ID); err != nil {
			return err
		}
		for _, li := range p.Medications {
			li.PrescriptionID = p.ID
			if err := r.insertLineItem(ctx, li); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	return err
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescriptions WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE `+where+` ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, p := range items {
		if err := r.loadLineItems(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, "patient_id = $1", patientID, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, "doctor_id = $1", doctorID, limit, offset)
}

func (r *repoPG) FindActiveByDoctor(ctx context.Context, doctorID int64, at time.Time) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx, `
		SELECT `+rxCols+` FROM prescriptions
		WHERE doctor_id = $1 AND start_date::date <= $2::date AND end_date::date >= $2::date
		ORDER BY start_date DESC LIMIT 1`, doctorID, at))
	if err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
