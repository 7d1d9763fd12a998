package iot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dosehub/dosehub/internal/domain/account"
	"github.com/dosehub/dosehub/internal/domain/device"
	"github.com/dosehub/dosehub/internal/domain/dispense"
	"github.com/dosehub/dosehub/internal/domain/medication"
	"github.com/dosehub/dosehub/internal/domain/prescription"
	"github.com/dosehub/dosehub/internal/platform/httperr"
)

type fakeDevices struct {
	byName map[string]*device.Device
	logs   []*device.Log
	getErr error
	logErr error
}

func (f *fakeDevices) GetByName(_ context.Context, name string) (*device.Device, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.byName[name]
	if !ok {
		return nil, device.ErrNotFound
	}
	return d, nil
}

func (f *fakeDevices) List(_ context.Context, _, _ int) ([]*device.Device, int, error) {
	var items []*device.Device
	for _, d := range f.byName {
		items = append(items, d)
	}
	return items, len(items), nil
}

func (f *fakeDevices) AppendLog(_ context.Context, l *device.Log) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeDevices) ListLogs(_ context.Context, deviceID int64, _, _ int) ([]*device.Log, int, error) {
	var items []*device.Log
	for _, l := range f.logs {
		if l.DeviceID == deviceID {
			items = append(items, l)
		}
	}
	return items, len(items), nil
}

func (f *fakeDevices) Authenticate(_ context.Context, apiKey string) (*device.Device, error) {
	for _, d := range f.byName {
		if d.APIKey == apiKey {
			return d, nil
		}
	}
	return nil, httperr.Unauthorized("unknown device key")
}

type fakePrescriptions struct {
	p   *prescription.Prescription
	err error
}

func (f *fakePrescriptions) FindActiveByDoctor(_ context.Context, doctorID int64, _ time.Time) (*prescription.Prescription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.p == nil || f.p.DoctorID != doctorID {
		return nil, prescription.ErrNotFound
	}
	return f.p, nil
}

type fakeMedications struct {
	byID map[int64]*medication.Medication
	err  error
}

func (f *fakeMedications) Get(_ context.Context, id int64) (*medication.Medication, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.byID[id]
	if !ok {
		return nil, httperr.NotFound("medication not found")
	}
	return m, nil
}

type fakePatients struct {
	byID  map[int64]*account.Patient
	err   error
	panic bool
}

func (f *fakePatients) GetPatient(_ context.Context, id int64) (*account.Patient, error) {
	if f.panic {
		panic("patient store corrupted")
	}
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, httperr.NotFound("patient not found")
	}
	return p, nil
}

type fakeEvents struct {
	created []*dispense.Event
	rows    []*dispense.AnalyticsRow
	from    time.Time
	to      time.Time
}

func (f *fakeEvents) Create(_ context.Context, e *dispense.Event) error {
	e.ID = int64(len(f.created) + 1)
	f.created = append(f.created, e)
	return nil
}

func (f *fakeEvents) ListByDevice(_ context.Context, _ int64, _, _ int) ([]*dispense.Event, int, error) {
	return f.created, len(f.created), nil
}

func (f *fakeEvents) Analytics(_ context.Context, from, to time.Time) ([]*dispense.AnalyticsRow, error) {
	f.from, f.to = from, to
	return f.rows, nil
}

func (f *fakeEvents) Summary(_ context.Context, from, to time.Time) (*dispense.Summary, error) {
	f.from, f.to = from, to
	var s dispense.Summary
	for _, e := range f.created {
		s.TotalDispensed += int64(e.QuantityDispensed)
		s.TotalRevenue += e.Price
		s.DispenseCount++
	}
	return &s, nil
}

func (f *fakeEvents) TotalsByMedication(_ context.Context, from, to time.Time) ([]*dispense.MedicationTotals, error) {
	f.from, f.to = from, to
	return nil, nil
}

func (f *fakeEvents) TotalsByDoctor(_ context.Context, from, to time.Time) ([]*dispense.DoctorTotals, error) {
	f.from, f.to = from, to
	return nil, nil
}

func (f *fakeEvents) TotalsByPatient(_ context.Context, from, to time.Time) ([]*dispense.PatientTotals, error) {
	f.from, f.to = from, to
	return nil, nil
}

func (f *fakeEvents) HourlyDistribution(_ context.Context, from, to time.Time) ([]*dispense.HourlyCount, error) {
	f.from, f.to = from, to
	return nil, nil
}

type fixture struct {
	devices       *fakeDevices
	prescriptions *fakePrescriptions
	medications   *fakeMedications
	patients      *fakePatients
	events        *fakeEvents
	svc           *Service
}

func newFixture() *fixture {
	f := &fixture{
		devices: &fakeDevices{byName: map[string]*device.Device{
			"CAB-1": {ID: 10, Name: "CAB-1", WorkplaceID: 1, APIKey: "key"},
		}},
		prescriptions: &fakePrescriptions{},
		medications: &fakeMedications{byID: map[int64]*medication.Medication{
			7: {ID: 7, Name: "Ibuprofen", PricePerBlister: 4.5},
		}},
		patients: &fakePatients{byID: map[int64]*account.Patient{
			3: {ID: 3, FirstName: "John", LastName: "Doe"},
		}},
		events: &fakeEvents{},
	}
	f.svc = NewService(f.devices, f.prescriptions, f.medications, f.patients, f.events, nil, nil, zerolog.Nop())
	return f
}

func activePrescription(doctorID int64) *prescription.Prescription {
	now := time.Now()
	return &prescription.Prescription{
		ID:        100,
		PatientID: 3,
		DoctorID:  doctorID,
		StartDate: now.AddDate(0, 0, -1),
		EndDate:   now.AddDate(0, 0, 1),
		Medications: []*prescription.LineItem{
			{ID: 1, PrescriptionID: 100, MedicationID: 7, Dosage: 200},
		},
	}
}

func TestScan_Authorized(t *testing.T) {
	f := newFixture()
	f.prescriptions.p = activePrescription(5)

	d := f.svc.Scan(context.Background(), ScanRequest{DeviceID: "CAB-1", MedicationID: 7, UserID: 5})
	if !d.Allowed {
		t.Fatalf("expected allowed, got denied with reason %q", d.Reason)
	}
	if d.PrescriptionID != 100 || d.PatientID != 3 || d.DoctorID != 5 || d.MedicationID != 7 {
		t.Errorf("unexpected decision ids: %+v", d)
	}
	if d.Dosage != 200 {
		t.Errorf("dosage = %v, want 200", d.Dosage)
	}
	if d.PatientName != "John Doe" {
		t.Errorf("patient name = %q, want %q", d.PatientName, "John Doe")
	}
	if d.MedicationName != "Ibuprofen" {
		t.Errorf("medication name = %q, want %q", d.MedicationName, "Ibuprofen")
	}

	if len(f.devices.logs) != 1 {
		t.Fatalf("expected 1 device log, got %d", len(f.devices.logs))
	}
	if got, want := f.devices.logs[0].Description, "Scan authorized for patient John Doe"; got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestScan_DeviceNotFound(t *testing.T) {
	f := newFixture()
	f.prescriptions.p = activePrescription(5)

	d := f.svc.Scan(context.Background(), ScanRequest{DeviceID: "NOPE", MedicationID: 7, UserID: 5})
	if d.Allowed || d.Reason != ReasonDeviceNotFound {
		t.Errorf("decision = %+v, want denied %q", d, ReasonDeviceNotFound)
	}
	if len(f.devices.logs) != 0 {
		t.Errorf("denied scan must not write device logs, got %d", len(f.devices.logs))
	}
}

func TestScan_NoValidPrescription(t *testing.T) {
	f := newFixture()

	d := f.svc.Scan(context.Background(), ScanRequest{DeviceID: "CAB-1", MedicationID: 7, UserID: 5})
	if d.Allowed || d.Reason != ReasonNoValidPrescription {
		t.Errorf("decision = %+v, want denied %q", d, ReasonNoValidPrescription)
	}
}

func TestScan_MedicationNotInPrescription(t *testing.T) {
	f := newFixture()
	f.prescriptions.p = activePrescription(5)

	d := f.svc.Scan(context.Background(), ScanRequest{DeviceID: "CAB-1", MedicationID: 99, UserID: 5})
	if d.Allowed || d.Reason != ReasonMedicationNotIncluded {
		t.Errorf("decision = %+v, want denied %q", d, ReasonMedicationNotIncluded)
	}
}

func TestScan_BackendFailureIsSoft(t *testing.T) {
	f := newFixture()
	f.prescriptions.p = activePrescription(5)
	f.patients.err = errors.New("connection reset")

	d := f.svc.Scan(context.Background(), ScanRequest{DeviceID: "CAB-1", MedicationID: 7, UserID: 5})
	if d.Allowed || d.Reason != ReasonSystemError {
		t.Errorf("decision = %+v, want denied %q", d, ReasonSystemError)
	}
}

func TestScan_PanicIsSoft(t *testing.T) {
	f := newFixture()
	f.prescriptions.p = activePrescription(5)
	f.patients.panic = true

	d := f.svc.Scan(context.Background(), ScanRequest{DeviceID: "CAB-1", MedicationID: 7, UserID: 5})
	if d == nil {
		t.Fatal("expected a decision, got nil")
	}
	if d.Allowed || d.Reason != ReasonSystemError {
		t.Errorf("decision = %+v, want denied %q", d, ReasonSystemError)
	}
}

func TestRecordDispense(t *testing.T) {
	f := newFixture()

	event, err := f.svc.RecordDispense(context.Background(), DispenseRequest{
		DeviceID:          "CAB-1",
		PrescriptionID:    100,
		PatientID:         3,
		DoctorID:          5,
		MedicationID:      7,
		QuantityDispensed: 3,
	})
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if event.Price != 13.5 {
		t.Errorf("price = %v, want 13.5 (3 x 4.5)", event.Price)
	}
	if event.DeviceID != 10 {
		t.Errorf("device id = %d, want 10", event.DeviceID)
	}
	if event.DispensedAt.IsZero() {
		t.Error("dispensed_at not set")
	}

	if len(f.events.created) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(f.events.created))
	}
	if len(f.devices.logs) != 1 {
		t.Fatalf("expected 1 device log, got %d", len(f.devices.logs))
	}
	if got, want := f.devices.logs[0].Description, "Dispensed 3 units of medication ID 7"; got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestRecordDispense_MissingMedicationPricedZero(t *testing.T) {
	f := newFixture()

	event, err := f.svc.RecordDispense(context.Background(), DispenseRequest{
		DeviceID:          "CAB-1",
		MedicationID:      999,
		QuantityDispensed: 2,
	})
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if event.Price != 0 {
		t.Errorf("price = %v, want 0 for missing medication", event.Price)
	}
}

func TestRecordDispense_UnknownDevice(t *testing.T) {
	f := newFixture()

	_, err := f.svc.RecordDispense(context.Background(), DispenseRequest{DeviceID: "NOPE", MedicationID: 7})
	if !httperr.IsKind(err, httperr.KindBadRequest) {
		t.Errorf("expected BadRequest, got %v", err)
	}
	if len(f.events.created) != 0 {
		t.Errorf("no event should be stored, got %d", len(f.events.created))
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()

	err := f.svc.UpdateStatus(context.Background(), StatusRequest{
		DeviceID:       "CAB-1",
		Status:         "ok",
		Temperature:    21.5,
		Humidity:       40,
		InventoryCount: 12,
	})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(f.devices.logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(f.devices.logs))
	}
	if got, want := f.devices.logs[0].Description, "Status: ok, Temp: 21.5°C, Humidity: 40%, Inventory: 12"; got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestUpdateStatus_Emergency(t *testing.T) {
	f := newFixture()

	err := f.svc.UpdateStatus(context.Background(), StatusRequest{DeviceID: "CAB-1", Status: "emergency"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(f.devices.logs) != 2 {
		t.Fatalf("expected status line plus alert, got %d logs", len(f.devices.logs))
	}
	alert := f.devices.logs[1]
	if alert.Severity != device.SeverityAlert {
		t.Errorf("alert severity = %q, want %q", alert.Severity, device.SeverityAlert)
	}
	if got, want := alert.Description, "EMERGENCY ALERT - Immediate attention required"; got != want {
		t.Errorf("alert = %q, want %q", got, want)
	}
}

func TestUpdateInventory_LowCount(t *testing.T) {
	f := newFixture()

	err := f.svc.UpdateInventory(context.Background(), InventoryRequest{
		DeviceID:     "CAB-1",
		MedicationID: 7,
		CurrentCount: 4,
	})
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(f.devices.logs) != 2 {
		t.Fatalf("expected update plus alert, got %d logs", len(f.devices.logs))
	}
	if got, want := f.devices.logs[0].Description, "Inventory update - Medication ID: 7, Count: 4"; got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
	if got, want := f.devices.logs[1].Description, "LOW INVENTORY ALERT - Medication ID 7 has only 4 units remaining"; got != want {
		t.Errorf("alert = %q, want %q", got, want)
	}
}

func TestUpdateInventory_HealthyCount(t *testing.T) {
	f := newFixture()

	err := f.svc.UpdateInventory(context.Background(), InventoryRequest{
		DeviceID:     "CAB-1",
		MedicationID: 7,
		CurrentCount: 6,
	})
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(f.devices.logs) != 1 {
		t.Errorf("expected only the update log, got %d", len(f.devices.logs))
	}
}

func TestDispenseAnalytics_DefaultWindow(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	if _, err := f.svc.DispenseAnalytics(context.Background(), time.Time{}, time.Time{}); err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if !f.events.to.Equal(now) {
		t.Errorf("to = %v, want %v", f.events.to, now)
	}
	if want := now.AddDate(0, 0, -30); !f.events.from.Equal(want) {
		t.Errorf("from = %v, want %v", f.events.from, want)
	}
}

func TestDispenseSummary(t *testing.T) {
	f := newFixture()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.RecordDispense(context.Background(), DispenseRequest{
			DeviceID:          "CAB-1",
			MedicationID:      7,
			QuantityDispensed: 3,
		}); err != nil {
			t.Fatalf("dispense: %v", err)
		}
	}

	s, err := f.svc.DispenseSummary(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.DispenseCount != 2 || s.TotalDispensed != 6 {
		t.Errorf("summary = %+v, want 2 events and 6 units", s)
	}
	if s.TotalRevenue != 27 {
		t.Errorf("revenue = %v, want 27 (2 x 3 x 4.5)", s.TotalRevenue)
	}
}

func TestDispenseAnalytics_InvertedWindow(t *testing.T) {
	f := newFixture()

	_, err := f.svc.DispenseAnalytics(context.Background(),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if !httperr.IsKind(err, httperr.KindBadRequest) {
		t.Errorf("expected BadRequest for inverted window, got %v", err)
	}
}
