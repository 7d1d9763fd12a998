package iot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dosehub/dosehub/internal/domain/account"
	"github.com/dosehub/dosehub/internal/domain/device"
	"github.com/dosehub/dosehub/internal/domain/dispense"
	"github.com/dosehub/dosehub/internal/domain/medication"
	"github.com/dosehub/dosehub/internal/domain/prescription"
	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/internal/platform/metrics"
)

// Devices is the slice of the device service the dispensing flow needs.
type Devices interface {
	GetByName(ctx context.Context, name string) (*device.Device, error)
	List(ctx context.Context, limit, offset int) ([]*device.Device, int, error)
	AppendLog(ctx context.Context, l *device.Log) error
	ListLogs(ctx context.Context, deviceID int64, limit, offset int) ([]*device.Log, int, error)
	Authenticate(ctx context.Context, apiKey string) (*device.Device, error)
}

type Prescriptions interface {
	FindActiveByDoctor(ctx context.Context, doctorID int64, at time.Time) (*prescription.Prescription, error)
}

type Medications interface {
	Get(ctx context.Context, id int64) (*medication.Medication, error)
}

type Patients interface {
	GetPatient(ctx context.Context, id int64) (*account.Patient, error)
}

// TxFunc runs fn inside one database transaction. A nil TxFunc runs fn
// directly, which is what the unit tests use.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	devices       Devices
	prescriptions Prescriptions
	medications   Medications
	patients      Patients
	events        dispense.Repository
	inTx          TxFunc
	metrics       *metrics.Metrics
	logger        zerolog.Logger

	now func() time.Time
}

func NewService(
	devices Devices,
	prescriptions Prescriptions,
	medications Medications,
	patients Patients,
	events dispense.Repository,
	inTx TxFunc,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		devices:       devices,
		prescriptions: prescriptions,
		medications:   medications,
		patients:      patients,
		events:        events,
		inTx:          inTx,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx == nil {
		return fn(ctx)
	}
	return s.inTx(ctx, fn)
}

func (s *Service) decide(allowed bool, reason string) *Decision {
	if s.metrics != nil {
		s.metrics.DispenseDecision.WithLabelValues(fmt.Sprintf("%t", allowed), reason).Inc()
	}
	return &Decision{Allowed: allowed, Reason: reason}
}

// Scan authorizes (or denies) dispensing the scanned medication. The verdict
// is always a soft answer: lookup failures, backend errors and even panics
// come back as Allowed=false with a reason, never as an HTTP error, so a
// cabinet in the field degrades to "locked" instead of crashing on a 5xx.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (d *Decision) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("device", req.DeviceID).Msg("scan: panic recovered")
			d = s.decide(false, ReasonSystemError)
		}
	}()

	dev, err := s.devices.GetByName(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return s.decide(false, ReasonDeviceNotFound)
		}
		s.logger.Error().Err(err).Str("device", req.DeviceID).Msg("scan: device lookup failed")
		return s.decide(false, ReasonSystemError)
	}

	p, err := s.prescriptions.FindActiveByDoctor(ctx, req.UserID, s.now())
	if err != nil {
		if errors.Is(err, prescription.ErrNotFound) {
			return s.decide(false, ReasonNoValidPrescription)
		}
		s.logger.Error().Err(err).Int64("doctor_id", req.UserID).Msg("scan: prescription lookup failed")
		return s.decide(false, ReasonSystemError)
	}

	item := p.FindMedication(req.MedicationID)
	if item == nil {
		return s.decide(false, ReasonMedicationNotIncluded)
	}

	patient, err := s.patients.GetPatient(ctx, p.PatientID)
	if err != nil {
		s.logger.Error().Err(err).Int64("patient_id", p.PatientID).Msg("scan: patient lookup failed")
		return s.decide(false, ReasonSystemError)
	}

	med, err := s.medications.Get(ctx, req.MedicationID)
	if err != nil {
		s.logger.Error().Err(err).Int64("medication_id", req.MedicationID).Msg("scan: medication lookup failed")
		return s.decide(false, ReasonSystemError)
	}

	if err := s.devices.AppendLog(ctx, &device.Log{
		DeviceID:    dev.ID,
		Description: fmt.Sprintf("Scan authorized for patient %s", patient.FullName()),
	}); err != nil {
		s.logger.Error().Err(err).Int64("device_id", dev.ID).Msg("scan: log append failed")
		return s.decide(false, ReasonSystemError)
	}

	d = s.decide(true, "")
	d.PrescriptionID = p.ID
	d.PatientID = p.PatientID
	d.DoctorID = p.DoctorID
	d.MedicationID = req.MedicationID
	d.Dosage = item.Dosage
	d.PatientName = patient.FullName()
	d.MedicationName = med.Name
	return d
}

// RecordDispense persists a completed dispense and its journal line in one
// transaction. The unit price is the medication's blister price at the time
// of dispensing; a medication that has since been deleted is priced at zero
// rather than failing the event.
func (s *Service) RecordDispense(ctx context.Context, req DispenseRequest) (*dispense.Event, error) {
	dev, err := s.devices.GetByName(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return nil, httperr.BadRequest("unknown device")
		}
		return nil, err
	}

	var unitPrice float64
	med, err := s.medications.Get(ctx, req.MedicationID)
	switch {
	case err == nil:
		unitPrice = med.PricePerBlister
	case httperr.IsKind(err, httperr.KindNotFound):
		unitPrice = 0
	default:
		return nil, err
	}

	event := &dispense.Event{
		PrescriptionID:    req.PrescriptionID,
		DeviceID:          dev.ID,
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		MedicationID:      req.MedicationID,
		QuantityDispensed: req.QuantityDispensed,
		Price:             unitPrice * float64(req.QuantityDispensed),
		DispensedAt:       s.now(),
	}

	err = s.transact(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, event); err != nil {
			return err
		}
		return s.devices.AppendLog(ctx, &device.Log{
			DeviceID:    dev.ID,
			Description: fmt.Sprintf("Dispensed %d units of medication ID %d", req.QuantityDispensed, req.MedicationID),
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateStatus records a heartbeat. An "emergency" status raises an
// additional alert entry so operators can filter for it.
func (s *Service) UpdateStatus(ctx context.Context, req StatusRequest) error {
	dev, err := s.devices.GetByName(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return httperr.BadRequest("unknown device")
		}
		return err
	}

	if err := s.devices.AppendLog(ctx, &device.Log{
		DeviceID: dev.ID,
		Description: fmt.Sprintf("Status: %s, Temp: %g°C, Humidity: %g%%, Inventory: %d",
			req.Status, req.Temperature, req.Humidity, req.InventoryCount),
	}); err != nil {
		return err
	}

	if req.Status == StatusEmergency {
		s.logger.Warn().Str("device", req.DeviceID).Msg("emergency status reported")
		return s.devices.AppendLog(ctx, &device.Log{
			DeviceID:    dev.ID,
			Severity:    device.SeverityAlert,
			Description: "EMERGENCY ALERT - Immediate attention required",
		})
	}
	return nil
}

// AddLog appends a free-form journal line for the device.
func (s *Service) AddLog(ctx context.Context, req LogRequest) error {
	dev, err := s.devices.GetByName(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return httperr.BadRequest("unknown device")
		}
		return err
	}
	if req.Description == "" {
		return httperr.BadRequest("description is required")
	}
	return s.devices.AppendLog(ctx, &device.Log{DeviceID: dev.ID, Description: req.Description})
}

// UpdateInventory records the remaining count for one medication and raises
// an alert entry when the cabinet is running low.
func (s *Service) UpdateInventory(ctx context.Context, req InventoryRequest) error {
	dev, err := s.devices.GetByName(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return httperr.BadRequest("unknown device")
		}
		return err
	}

	if err := s.devices.AppendLog(ctx, &device.Log{
		DeviceID:    dev.ID,
		Description: fmt.Sprintf("Inventory update - Medication ID: %d, Count: %d", req.MedicationID, req.CurrentCount),
	}); err != nil {
		return err
	}

	if req.CurrentCount <= LowInventoryThreshold {
		s.logger.Warn().
			Int64("device_id", dev.ID).
			Int64("medication_id", req.MedicationID).
			Int("count", req.CurrentCount).
			Msg("low inventory")
		return s.devices.AppendLog(ctx, &device.Log{
			DeviceID: dev.ID,
			Severity: device.SeverityAlert,
			Description: fmt.Sprintf("LOW INVENTORY ALERT - Medication ID %d has only %d units remaining",
				req.MedicationID, req.CurrentCount),
		})
	}
	return nil
}

func (s *Service) ListDevices(ctx context.Context, limit, offset int) ([]*device.Device, int, error) {
	return s.devices.List(ctx, limit, offset)
}

// DeviceLogs lists journal entries for a device addressed by its external
// name, newest first.
func (s *Service) DeviceLogs(ctx context.Context, name string, limit, offset int) ([]*device.Log, int, error) {
	dev, err := s.devices.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return nil, 0, httperr.NotFound("device not found")
		}
		return nil, 0, err
	}
	return s.devices.ListLogs(ctx, dev.ID, limit, offset)
}

// window fills zero reporting bounds with the default last-30-days window.
func (s *Service) window(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return from, to, httperr.BadRequest("start of the window must not be after its end")
	}
	return from, to, nil
}

// DispenseAnalytics aggregates dispense events per (device, medication)
// over [from, to]. Zero bounds default to the last 30 days.
func (s *Service) DispenseAnalytics(ctx context.Context, from, to time.Time) ([]*dispense.AnalyticsRow, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.events.Analytics(ctx, from, to)
}

func (s *Service) DispenseSummary(ctx context.Context, from, to time.Time) (*dispense.Summary, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.events.Summary(ctx, from, to)
}

func (s *Service) TotalsByMedication(ctx context.Context, from, to time.Time) ([]*dispense.MedicationTotals, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.events.TotalsByMedication(ctx, from, to)
}

func (s *Service) TotalsByDoctor(ctx context.Context, from, to time.Time) ([]*dispense.DoctorTotals, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.events.TotalsByDoctor(ctx, from, to)
}

func (s *Service) TotalsByPatient(ctx context.Context, from, to time.Time) ([]*dispense.PatientTotals, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.events.TotalsByPatient(ctx, from, to)
}

func (s *Service) HourlyDistribution(ctx context.Context, from, to time.Time) ([]*dispense.HourlyCount, error) {
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.events.HourlyDistribution(ctx, from, to)
}
