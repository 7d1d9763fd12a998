package medication

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("medication: not found")

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id int64) (*Medication, error)
	GetByBarcode(ctx context.Context, barcode string) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, nameFilter string, limit, offset int) ([]*Medication, int, error)
}

type StockRepository interface {
	Create(ctx context.Context, s *Stock) error
	ListByMedication(ctx context.Context, medicationID int64, limit, offset int) ([]*Stock, int, error)
	// TotalQuantity sums the remaining stock for a medication across batches.
	TotalQuantity(ctx context.Context, medicationID int64) (int, error)
	// SetQuantity overwrites a batch's remaining quantity.
	SetQuantity(ctx context.Context, stockID int64, quantity int) error
}
