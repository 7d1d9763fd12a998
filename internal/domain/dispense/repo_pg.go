package dispense

import (
	"context"
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

const eventCols = `id, prescription_id, device_id, patient_id, doctor_id, medication_id,
	quantity_dispensed, price, dispensed_at`

func (r *repoPG) Create(ctx context.Context, e *Event) error {
	if e.DispensedAt.IsZero() {
		e.DispensedAt = time.Now()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dispense_events
			(prescription_id, device_id, patient_id, doctor_id, medication_id,
			 quantity_dispensed, price, dispensed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		e.PrescriptionID, e.DeviceID, e.PatientID, e.DoctorID, e.MedicationID,
		e.QuantityDispensed, e.Price, e.DispensedAt).
		Scan(&e.ID)
}

func (r *repoPG) ListByDevice(ctx context.Context, deviceID int64, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM dispense_events WHERE device_id = $1`, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+`
		FROM dispense_events WHERE device_id = $1
		ORDER BY dispensed_at DESC LIMIT $2 OFFSET $3`, deviceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.PrescriptionID, &e.DeviceID, &e.PatientID, &e.DoctorID,
			&e.MedicationID, &e.QuantityDispensed, &e.Price, &e.DispensedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Analytics(ctx context.Context, from, to time.Time) ([]*AnalyticsRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT device_id, medication_id,
		       COALESCE(SUM(quantity_dispensed), 0) AS total_dispensed,
		       COALESCE(SUM(price), 0)              AS total_revenue,
		       COUNT(*)                             AS dispense_count
		FROM dispense_events
		WHERE dispensed_at >= $1 AND dispensed_at <= $2
		GROUP BY device_id, medication_id
		ORDER BY device_id, medication_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*AnalyticsRow
	for rows.Next() {
		var a AnalyticsRow
		if err := rows.Scan(&a.DeviceID, &a.MedicationID, &a.TotalDispensed, &a.TotalRevenue, &a.DispenseCount); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	var s Summary
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_dispensed), 0),
		       COALESCE(SUM(price), 0),
		       COUNT(*)
		FROM dispense_events
		WHERE dispensed_at >= $1 AND dispensed_at <= $2`, from, to).
		Scan(&s.TotalDispensed, &s.TotalRevenue, &s.DispenseCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) TotalsByMedication(ctx context.Context, from, to time.Time) ([]*MedicationTotals, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT medication_id,
		       COALESCE(SUM(quantity_dispensed), 0),
		       COALESCE(SUM(price), 0),
		       COUNT(*)
		FROM dispense_events
		WHERE dispensed_at >= $1 AND dispensed_at <= $2
		GROUP BY medication_id
		ORDER BY medication_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MedicationTotals
	for rows.Next() {
		var t MedicationTotals
		if err := rows.Scan(&t.MedicationID, &t.TotalDispensed, &t.TotalRevenue, &t.DispenseCount); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *repoPG) TotalsByDoctor(ctx context.Context, from, to time.Time) ([]*DoctorTotals, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT doctor_id,
		       COALESCE(SUM(quantity_dispensed), 0),
		       COALESCE(SUM(price), 0),
		       COUNT(*)
		FROM dispense_events
		WHERE dispensed_at >= $1 AND dispensed_at <= $2
		GROUP BY doctor_id
		ORDER BY doctor_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DoctorTotals
	for rows.Next() {
		var t DoctorTotals
		if err := rows.Scan(&t.DoctorID, &t.TotalDispensed, &t.TotalRevenue, &t.DispenseCount); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *repoPG) TotalsByPatient(ctx context.Context, from, to time.Time) ([]*PatientTotals, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT patient_id,
		       COALESCE(SUM(quantity_dispensed), 0),
		       COALESCE(SUM(price), 0),
		       COUNT(*)
		FROM dispense_events
		WHERE dispensed_at >= $1 AND dispensed_at <= $2
		GROUP BY patient_id
		ORDER BY patient_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PatientTotals
	for rows.Next() {
		var t PatientTotals
		if err := rows.Scan(&t.PatientID, &t.TotalDispensed, &t.TotalRevenue, &t.DispenseCount); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *repoPG) HourlyDistribution(ctx context.Context, from, to time.Time) ([]*HourlyCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT EXTRACT(HOUR FROM dispensed_at)::int AS hour, COUNT(*)
		FROM dispense_events
		WHERE dispensed_at >= $1 AND dispensed_at <= $2
		GROUP BY hour
		ORDER BY hour`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*HourlyCount
	for rows.Next() {
		var h HourlyCount
		if err := rows.Scan(&h.Hour, &h.DispenseCount); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}
