package prescription

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("prescription: not found")

type Repository interface {
	// Create inserts the prescription and its line items in one transaction.
	Create(ctx context.Context, p *Prescription) error
	// GetByID loads the prescription with its line items.
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Prescription, int, error)
	// FindActiveByDoctor returns the first prescription written by the doctor
	// whose validity window contains the given instant, with line items
	// loaded. Returns ErrNotFound when there is none.
	FindActiveByDoctor(ctx context.Context, doctorID int64, at time.Time) (*Prescription, error)
}
