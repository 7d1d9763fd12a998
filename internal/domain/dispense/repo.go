package dispense

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	ListByDevice(ctx context.Context, deviceID int64, limit, offset int) ([]*Event, int, error)
	Analytics(ctx context.Context, from, to time.Time) ([]*AnalyticsRow, error)
	Summary(ctx context.Context, from, to time.Time) (*Summary, error)
	TotalsByMedication(ctx context.Context, from, to time.Time) ([]*MedicationTotals, error)
	TotalsByDoctor(ctx context.Context, from, to time.Time) ([]*DoctorTotals, error)
	TotalsByPatient(ctx context.Context, from, to time.Time) ([]*PatientTotals, error)
	HourlyDistribution(ctx context.Context, from, to time.Time) ([]*HourlyCount, error)
}
