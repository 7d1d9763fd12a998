package device

import (
	"context"
	"errors"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type Service struct {
	devices Repository
	logs    LogRepository
}

func NewService(devices Repository, logs LogRepository) *Service {
	return &Service{devices: devices, logs: logs}
}

// Create registers a device and issues its API key.
func (s *Service) Create(ctx context.Context, d *Device) error {
	if d.Name == "" {
		return httperr.BadRequest("device name is required")
	}
	if _, err := s.devices.GetByName(ctx, d.Name); err == nil {
		return httperr.BadRequest("device name is already taken")
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	key, err := NewAPIKey()
	if err != nil {
		return err
	}
	d.APIKey = key
	return s.devices.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id int64) (*Device, error) {
	d, err := s.devices.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("device not found")
	}
	return d, err
}

func (s *Service) GetByName(ctx context.Context, name string) (*Device, error) {
	return s.devices.GetByName(ctx, name)
}

// Authenticate resolves a device by its API key.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*Device, error) {
	if apiKey == "" {
		return nil, httperr.Unauthorized("missing device key")
	}
	d, err := s.devices.GetByAPIKey(ctx, apiKey)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.Unauthorized("unknown device key")
	}
	return d, err
}

// RotateAPIKey issues a new credential for the device, invalidating the old.
func (s *Service) RotateAPIKey(ctx context.Context, id int64) (*Device, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key, err := NewAPIKey()
	if err != nil {
		return nil, err
	}
	d.APIKey = key
	if err := s.devices.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, d *Device) error {
	current, err := s.Get(ctx, d.ID)
	if err != nil {
		return err
	}
	d.APIKey = current.APIKey
	return s.devices.Update(ctx, d)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.devices.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Device, int, error) {
	return s.devices.List(ctx, limit, offset)
}

func (s *Service) AppendLog(ctx context.Context, l *Log) error {
	return s.logs.Append(ctx, l)
}

func (s *Service) ListLogs(ctx context.Context, deviceID int64, limit, offset int) ([]*Log, int, error) {
	return s.logs.ListByDevice(ctx, deviceID, limit, offset)
}
