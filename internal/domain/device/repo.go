package device

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("device: not found")

type Repository interface {
	Create(ctx context.Context, d *Device) error
	GetByID(ctx context.Context, id int64) (*Device, error)
	GetByName(ctx context.Context, name string) (*Device, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Device, error)
	Update(ctx context.Context, d *Device) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Device, int, error)
}

type LogRepository interface {
	Append(ctx context.Context, l *Log) error
	ListByDevice(ctx context.Context, deviceID int64, limit, offset int) ([]*Log, int, error)
}
