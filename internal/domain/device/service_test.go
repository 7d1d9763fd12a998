package device

import (
	"context"
	"testing"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type mockRepo struct {
	devices map[int64]*Device
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{devices: make(map[int64]*Device), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, d *Device) error {
	d.ID = m.nextID
	m.nextID++
	cp := *d
	m.devices[d.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Device, error) {
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) GetByName(_ context.Context, name string) (*Device, error) {
	for _, d := range m.devices {
		if d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByAPIKey(_ context.Context, apiKey string) (*Device, error) {
	for _, d := range m.devices {
		if d.APIKey == apiKey {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, d *Device) error {
	cp := *d
	m.devices[d.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	delete(m.devices, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Device, int, error) {
	var items []*Device
	for _, d := range m.devices {
		cp := *d
		items = append(items, &cp)
	}
	return items, len(items), nil
}

type mockLogRepo struct {
	logs   []*Log
	nextID int64
}

func newMockLogRepo() *mockLogRepo { return &mockLogRepo{nextID: 1} }

func (m *mockLogRepo) Append(_ context.Context, l *Log) error {
	l.ID = m.nextID
	m.nextID++
	cp := *l
	m.logs = append(m.logs, &cp)
	return nil
}

func (m *mockLogRepo) ListByDevice(_ context.Context, deviceID int64, limit, offset int) ([]*Log, int, error) {
	var items []*Log
	for _, l := range m.logs {
		if l.DeviceID == deviceID {
			cp := *l
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func TestCreate_IssuesAPIKey(t *testing.T) {
	svc := NewService(newMockRepo(), newMockLogRepo())

	d := &Device{Name: "DEV-1", WorkplaceID: 1}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.APIKey == "" {
		t.Error("expected an issued api key")
	}
	if len(d.APIKey) != 64 {
		t.Errorf("api key length = %d, want 64 hex chars", len(d.APIKey))
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	svc := NewService(newMockRepo(), newMockLogRepo())
	ctx := context.Background()

	if err := svc.Create(ctx, &Device{Name: "DEV-1", WorkplaceID: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := svc.Create(ctx, &Device{Name: "DEV-1", WorkplaceID: 2})
	if !httperr.IsKind(err, httperr.KindBadRequest) {
		t.Errorf("expected BadRequest for duplicate name, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMockRepo(), newMockLogRepo())
	ctx := context.Background()

	d := &Device{Name: "DEV-1", WorkplaceID: 1}
	if err := svc.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Authenticate(ctx, d.APIKey)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, d.ID)
	}

	if _, err := svc.Authenticate(ctx, "bogus"); !httperr.IsKind(err, httperr.KindUnauthorized) {
		t.Errorf("expected Unauthorized for bad key, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, ""); !httperr.IsKind(err, httperr.KindUnauthorized) {
		t.Errorf("expected Unauthorized for empty key, got %v", err)
	}
}

func TestRotateAPIKey(t *testing.T) {
	svc := NewService(newMockRepo(), newMockLogRepo())
	ctx := context.Background()

	d := &Device{Name: "DEV-1", WorkplaceID: 1}
	if err := svc.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	old := d.APIKey

	rotated, err := svc.RotateAPIKey(ctx, d.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.APIKey == old {
		t.Error("expected a new key after rotation")
	}

	if _, err := svc.Authenticate(ctx, old); !httperr.IsKind(err, httperr.KindUnauthorized) {
		t.Errorf("old key should be invalid after rotation, got %v", err)
	}
}
