package medication

import (
	"context"
	"errors"
	"testing"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type mockRepo struct {
	meds   map[int64]*Medication
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{meds: make(map[int64]*Medication), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, med *Medication) error {
	med.ID = m.nextID
	m.nextID++
	cp := *med
	m.meds[med.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *med
	return &cp, nil
}

func (m *mockRepo) GetByBarcode(_ context.Context, barcode string) (*Medication, error) {
	for _, med := range m.meds {
		if med.Barcode == barcode {
			cp := *med
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, med *Medication) error {
	cp := *med
	m.meds[med.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	delete(m.meds, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, nameFilter string, limit, offset int) ([]*Medication, int, error) {
	var items []*Medication
	for _, med := range m.meds {
		cp := *med
		items = append(items, &cp)
	}
	return items, len(items), nil
}

type mockStockRepo struct {
	batches map[int64]*Stock
	nextID  int64
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{batches: make(map[int64]*Stock), nextID: 1}
}

func (m *mockStockRepo) Create(_ context.Context, s *Stock) error {
	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.batches[s.ID] = &cp
	return nil
}

func (m *mockStockRepo) ListByMedication(_ context.Context, medicationID int64, limit, offset int) ([]*Stock, int, error) {
	var items []*Stock
	for _, s := range m.batches {
		if s.MedicationID == medicationID {
			cp := *s
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockStockRepo) TotalQuantity(_ context.Context, medicationID int64) (int, error) {
	total := 0
	for _, s := range m.batches {
		if s.MedicationID == medicationID {
			total += s.Quantity
		}
	}
	return total, nil
}

func (m *mockStockRepo) SetQuantity(_ context.Context, stockID int64, quantity int) error {
	s, ok := m.batches[stockID]
	if !ok {
		return ErrNotFound
	}
	s.Quantity = quantity
	return nil
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), newMockStockRepo())

	err := svc.Create(context.Background(), &Medication{})
	if !httperr.IsKind(err, httperr.KindBadRequest) {
		t.Fatalf("expected BadRequest, got %v", err)
	}

	var appErr *httperr.Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected *httperr.Error")
	}
	if len(appErr.Fields) != 2 {
		t.Errorf("field errors = %d, want 2 (name, barcode)", len(appErr.Fields))
	}
}

func TestCreate_NegativePrice(t *testing.T) {
	svc := NewService(newMockRepo(), newMockStockRepo())

	err := svc.Create(context.Background(), &Medication{Name: "Ibuprofen", Barcode: "123", PricePerBlister: -1})
	if !httperr.IsKind(err, httperr.KindBadRequest) {
		t.Errorf("expected BadRequest for negative price, got %v", err)
	}
}

func TestTotalStock(t *testing.T) {
	meds := newMockRepo()
	stock := newMockStockRepo()
	svc := NewService(meds, stock)
	ctx := context.Background()

	med := &Medication{Name: "Aspirin", Barcode: "999", PricePerBlister: 2.5}
	if err := svc.Create(ctx, med); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, q := range []int{10, 5} {
		if err := svc.AddStock(ctx, &Stock{MedicationID: med.ID, Quantity: q}); err != nil {
			t.Fatalf("add stock: %v", err)
		}
	}

	total, err := svc.TotalStock(ctx, med.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 15 {
		t.Errorf("total = %d, want 15", total)
	}
}

func TestAddStock_UnknownMedication(t *testing.T) {
	svc := NewService(newMockRepo(), newMockStockRepo())

	err := svc.AddStock(context.Background(), &Stock{MedicationID: 42, Quantity: 1})
	if !httperr.IsKind(err, httperr.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
