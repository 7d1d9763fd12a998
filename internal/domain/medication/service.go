package medication

import (
	"context"
	"errors"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type Service struct {
	medications Repository
	stock       StockRepository
}

func NewService(medications Repository, stock StockRepository) *Service {
	return &Service{medications: medications, stock: stock}
}

func (s *Service) Create(ctx context.Context, m *Medication) error {
	if err := validate(m); err != nil {
		return err
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id int64) (*Medication, error) {
	m, err := s.medications.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("medication not found")
	}
	return m, err
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Medication, error) {
	m, err := s.medications.GetByBarcode(ctx, barcode)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("medication not found")
	}
	return m, err
}

func (s *Service) Update(ctx context.Context, m *Medication) error {
	if err := validate(m); err != nil {
		return err
	}
	if _, err := s.Get(ctx, m.ID); err != nil {
		return err
	}
	return s.medications.Update(ctx, m)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.medications.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, nameFilter string, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, nameFilter, limit, offset)
}

func validate(m *Medication) error {
	var fields []httperr.FieldError
	if m.Name == "" {
		fields = append(fields, httperr.FieldError{Field: "name", Message: "name is required"})
	}
	if m.Barcode == "" {
		fields = append(fields, httperr.FieldError{Field: "barcode", Message: "barcode is required"})
	}
	if m.PricePerBlister < 0 {
		fields = append(fields, httperr.FieldError{Field: "price_per_blister", Message: "price must not be negative"})
	}
	if len(fields) > 0 {
		return httperr.BadRequest("invalid medication", fields...)
	}
	return nil
}

// -- Stock --

func (s *Service) AddStock(ctx context.Context, st *Stock) error {
	if st.Quantity < 0 {
		return httperr.BadRequest("quantity must not be negative")
	}
	if _, err := s.Get(ctx, st.MedicationID); err != nil {
		return err
	}
	return s.stock.Create(ctx, st)
}

func (s *Service) ListStock(ctx context.Context, medicationID int64, limit, offset int) ([]*Stock, int, error) {
	return s.stock.ListByMedication(ctx, medicationID, limit, offset)
}

func (s *Service) TotalStock(ctx context.Context, medicationID int64) (int, error) {
	return s.stock.TotalQuantity(ctx, medicationID)
}
