package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type Service struct {
	prescriptions Repository
}

func NewService(prescriptions Repository) *Service {
	return &Service{prescriptions: prescriptions}
}

func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id int64) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("prescription not found")
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	err := s.prescriptions.Update(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return httperr.NotFound("prescription not found")
	}
	return err
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.prescriptions.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByDoctor(ctx, doctorID, limit, offset)
}

// FindActiveByDoctor returns the doctor's prescription valid at the given
// instant, or ErrNotFound. The repository pre-filters on the window in SQL;
// the result is re-checked against ActiveAt so the date-only inclusive
// semantics hold even if the two ever disagree.
func (s *Service) FindActiveByDoctor(ctx context.Context, doctorID int64, at time.Time) (*Prescription, error) {
	p, err := s.prescriptions.FindActiveByDoctor(ctx, doctorID, at)
	if err != nil {
		return nil, err
	}
	if !p.ActiveAt(at) {
		return nil, ErrNotFound
	}
	return p, nil
}

func validate(p *Prescription) error {
	var fields []httperr.FieldError
	if p.PatientID == 0 {
		fields = append(fields, httperr.FieldError{Field: "patient_id", Message: "patient is required"})
	}
	if p.DoctorID == 0 {
		fields = append(fields, httperr.FieldError{Field: "doctor_id", Message: "doctor is required"})
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		fields = append(fields, httperr.FieldError{Field: "start_date", Message: "validity window is required"})
	} else if p.EndDate.Before(p.StartDate) {
		fields = append(fields, httperr.FieldError{Field: "end_date", Message: "end date must not precede start date"})
	}
	if len(p.Medications) == 0 {
		fields = append(fields, httperr.FieldError{Field: "medications", Message: "at least one medication is required"})
	}
	for _, li := range p.Medications {
		if li.MedicationID == 0 {
			fields = append(fields, httperr.FieldError{Field: "medications", Message: "medication id is required on every line item"})
			break
		}
	}
	if len(fields) > 0 {
		return httperr.BadRequest("invalid prescription", fields...)
	}
	return nil
}
