package prescription

import "time"

// Prescription authorizes dispensing of its line items to one patient,
// prescribed by one doctor, within the [StartDate, EndDate] validity window.
// Both bounds are inclusive and compared date-only.
type Prescription struct {
	ID        int64     `db:"id" json:"id"`
	PatientID int64     `db:"patient_id" json:"patient_id"`
	DoctorID  int64     `db:"doctor_id" json:"doctor_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Medications []*LineItem `db:"-" json:"medications,omitempty"`
}

// LineItem is one medication entry on a prescription.
type LineItem struct {
	ID                int64   `db:"id" json:"id"`
	PrescriptionID    int64   `db:"prescription_id" json:"prescription_id"`
	MedicationID      int64   `db:"medication_id" json:"medication_id"`
	Dosage            float64 `db:"dosage" json:"dosage"`
	QuantityOfDosages int     `db:"quantity_of_dosages" json:"quantity_of_dosages"`
	PeriodInDays      int     `db:"period_in_days" json:"period_in_days"`
	Discount          float64 `db:"discount" json:"discount"`
	Description       *string `db:"description" json:"description,omitempty"`
}

// ActiveAt reports whether the validity window contains the given instant.
// The comparison truncates to dates so a prescription ending today is still
// valid for the rest of the day.
func (p *Prescription) ActiveAt(now time.Time) bool {
	day := truncateToDay(now)
	return !day.Before(truncateToDay(p.StartDate)) && !day.After(truncateToDay(p.EndDate))
}

// FindMedication returns the line item for the given medication id, or nil.
func (p *Prescription) FindMedication(medicationID int64) *LineItem {
	for _, li := range p.Medications {
		if li.MedicationID == medicationID {
			return li
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
