package account

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("account: not found")

type ProfileRepository interface {
	// Upsert inserts the profile or updates the existing row for its user id.
	Upsert(ctx context.Context, p *Profile) error
	GetByUserID(ctx context.Context, userID int64) (*Profile, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
