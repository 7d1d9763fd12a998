package account

import (
	"context"
	"errors"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type Service struct {
	profiles ProfileRepository
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(profiles ProfileRepository, doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{profiles: profiles, doctors: doctors, patients: patients}
}

// EnsureProfile returns the profile for the user, creating an empty one if
// none exists yet.
func (s *Service) EnsureProfile(ctx context.Context, userID int64) (*Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p = &Profile{UserID: userID}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SaveProfile(ctx context.Context, p *Profile) error {
	if p.UserID == 0 {
		return httperr.BadRequest("user id is required")
	}
	return s.profiles.Upsert(ctx, p)
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("profile not found")
	}
	return p, err
}

// -- Doctors --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" && d.LastName == "" {
		return httperr.BadRequest("doctor name is required")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("doctor not found")
	}
	return d, err
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if _, err := s.GetDoctor(ctx, d.ID); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return err
	}
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" && p.LastName == "" {
		return httperr.BadRequest("patient name is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("patient not found")
	}
	return p, err
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if _, err := s.GetPatient(ctx, p.ID); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	if _, err := s.GetPatient(ctx, id); err != nil {
		return err
	}
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}
