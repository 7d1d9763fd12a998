package dispense

import "time"

// Event is one completed dispense performed by a cabinet device under an
// active prescription. Price is captured at dispense time so later price
// changes on the medication do not rewrite revenue history.
type Event struct {
	ID                int64     `json:"id" db:"id"`
	PrescriptionID    int64     `json:"prescription_id" db:"prescription_id"`
	DeviceID          int64     `json:"device_id" db:"device_id"`
	PatientID         int64     `json:"patient_id" db:"patient_id"`
	DoctorID          int64     `json:"doctor_id" db:"doctor_id"`
	MedicationID      int64     `json:"medication_id" db:"medication_id"`
	QuantityDispensed int       `json:"quantity_dispensed" db:"quantity_dispensed"`
	Price             float64   `json:"price" db:"price"`
	DispensedAt       time.Time `json:"dispensed_at" db:"dispensed_at"`
}

// AnalyticsRow aggregates dispense events per (device, medication) pair
// over a reporting window.
type AnalyticsRow struct {
	DeviceID       int64   `json:"device_id" db:"device_id"`
	MedicationID   int64   `json:"medication_id" db:"medication_id"`
	TotalDispensed int64   `json:"total_dispensed" db:"total_dispensed"`
	TotalRevenue   float64 `json:"total_revenue" db:"total_revenue"`
	DispenseCount  int64   `json:"dispense_count" db:"dispense_count"`
}

// Summary is the whole-window rollup.
type Summary struct {
	TotalDispensed int64   `json:"total_dispensed" db:"total_dispensed"`
	TotalRevenue   float64 `json:"total_revenue" db:"total_revenue"`
	DispenseCount  int64   `json:"dispense_count" db:"dispense_count"`
}

// MedicationTotals aggregates per medication.
type MedicationTotals struct {
	MedicationID   int64   `json:"medication_id" db:"medication_id"`
	TotalDispensed int64   `json:"total_dispensed" db:"total_dispensed"`
	TotalRevenue   float64 `json:"total_revenue" db:"total_revenue"`
	DispenseCount  int64   `json:"dispense_count" db:"dispense_count"`
}

// DoctorTotals aggregates per prescribing doctor.
type DoctorTotals struct {
	DoctorID       int64   `json:"doctor_id" db:"doctor_id"`
	TotalDispensed int64   `json:"total_dispensed" db:"total_dispensed"`
	TotalRevenue   float64 `json:"total_revenue" db:"total_revenue"`
	DispenseCount  int64   `json:"dispense_count" db:"dispense_count"`
}

// PatientTotals aggregates per patient.
type PatientTotals struct {
	PatientID      int64   `json:"patient_id" db:"patient_id"`
	TotalDispensed int64   `json:"total_dispensed" db:"total_dispensed"`
	TotalRevenue   float64 `json:"total_revenue" db:"total_revenue"`
	DispenseCount  int64   `json:"dispense_count" db:"dispense_count"`
}

// HourlyCount is the hour-of-day dispense distribution.
type HourlyCount struct {
	Hour          int   `json:"hour" db:"hour"`
	DispenseCount int64 `json:"dispense_count" db:"dispense_count"`
}
