package account

import (
	"context"
	"testing"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type mockProfileRepo struct {
	profiles map[int64]*Profile
	upserts  int
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[int64]*Profile)}
}

func (m *mockProfileRepo) Upsert(_ context.Context, p *Profile) error {
	m.upserts++
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *mockProfileRepo) GetByUserID(_ context.Context, userID int64) (*Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type mockDoctorRepo struct {
	doctors map[int64]*Doctor
	nextID  int64
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[int64]*Doctor), nextID: 1}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = m.nextID
	m.nextID++
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id int64) error {
	delete(m.doctors, id)
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		cp := *d
		items = append(items, &cp)
	}
	return items, len(items), nil
}

type mockPatientRepo struct {
	patients map[int64]*Patient
	nextID   int64
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[int64]*Patient), nextID: 1}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id int64) error {
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockProfileRepo, *mockDoctorRepo, *mockPatientRepo) {
	profiles := newMockProfileRepo()
	doctors := newMockDoctorRepo()
	patients := newMockPatientRepo()
	return NewService(profiles, doctors, patients), profiles, doctors, patients
}

func TestEnsureProfile_CreatesWhenMissing(t *testing.T) {
	svc, profiles, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.EnsureProfile(ctx, 7)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.UserID != 7 {
		t.Errorf("UserID = %d, want 7", p.UserID)
	}
	if profiles.upserts != 1 {
		t.Errorf("upserts = %d, want 1", profiles.upserts)
	}

	// Second call finds the existing row.
	if _, err := svc.EnsureProfile(ctx, 7); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if profiles.upserts != 1 {
		t.Errorf("upserts = %d after second ensure, want 1", profiles.upserts)
	}
}

func TestCreateDoctor_RequiresName(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.CreateDoctor(context.Background(), &Doctor{})
	if !httperr.IsKind(err, httperr.KindBadRequest) {
		t.Errorf("expected BadRequest, got %v", err)
	}
}

func TestGetDoctor_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetDoctor(context.Background(), 99)
	if !httperr.IsKind(err, httperr.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestDoctorCRUD(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	d := &Doctor{FirstName: "Greg", LastName: "House"}
	if err := svc.CreateDoctor(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == 0 {
		t.Fatal("expected assigned id")
	}

	d.LastName = "Wilson"
	if err := svc.UpdateDoctor(ctx, d); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetDoctor(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastName != "Wilson" {
		t.Errorf("LastName = %q", got.LastName)
	}

	if err := svc.DeleteDoctor(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetDoctor(ctx, d.ID); !httperr.IsKind(err, httperr.KindNotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestPatientFullName(t *testing.T) {
	p := Patient{FirstName: "Ada", LastName: "Lovelace"}
	if got := p.FullName(); got != "Ada Lovelace" {
		t.Errorf("FullName() = %q", got)
	}
	p = Patient{FirstName: "Ada"}
	if got := p.FullName(); got != "Ada" {
		t.Errorf("FullName() = %q", got)
	}
}
