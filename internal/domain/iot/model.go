package iot

// ScanRequest is sent by a cabinet device when a doctor scans a medication
// for dispensing. DeviceID carries the device's external name, UserID the
// scanning doctor's id.
type ScanRequest struct {
	DeviceID     string `json:"device_id"`
	MedicationID int64  `json:"medication_id"`
	UserID       int64  `json:"user_id"`
	WorkplaceID  int64  `json:"workplace_id"`
}

// Decision is the authorization verdict for a scan. Denials carry only
// Allowed=false and a Reason; the remaining fields are populated on approval
// so the device can display patient and medication details.
type Decision struct {
	Allowed        bool    `json:"allowed"`
	Reason         string  `json:"reason,omitempty"`
	PrescriptionID int64   `json:"prescription_id,omitempty"`
	PatientID      int64   `json:"patient_id,omitempty"`
	DoctorID       int64   `json:"doctor_id,omitempty"`
	MedicationID   int64   `json:"medication_id,omitempty"`
	Dosage         float64 `json:"dosage,omitempty"`
	PatientName    string  `json:"patient_name,omitempty"`
	MedicationName string  `json:"medication_name,omitempty"`
}

// Denial reasons reported to devices. These are part of the device firmware
// contract; do not reword them.
const (
	ReasonDeviceNotFound        = "Device not found"
	ReasonNoValidPrescription   = "No valid prescription found"
	ReasonMedicationNotIncluded = "Medication not in prescription"
	ReasonSystemError           = "System error"
)

// DispenseRequest confirms a completed dispense after an approved scan.
type DispenseRequest struct {
	DeviceID          string  `json:"device_id"`
	PrescriptionID    int64   `json:"prescription_id"`
	PatientID         int64   `json:"patient_id"`
	DoctorID          int64   `json:"doctor_id"`
	MedicationID      int64   `json:"medication_id"`
	QuantityDispensed int     `json:"quantity_dispensed"`
	Temperature       float64 `json:"temperature"`
	InventoryCount    int     `json:"inventory_count"`
}

// StatusRequest is the periodic device heartbeat.
type StatusRequest struct {
	DeviceID       string  `json:"device_id"`
	Status         string  `json:"status"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	InventoryCount int     `json:"inventory_count"`
	WorkplaceID    int64   `json:"workplace_id"`
	Uptime         int64   `json:"uptime"`
}

// LogRequest appends a free-form line to the device journal.
type LogRequest struct {
	DeviceID    string `json:"device_id"`
	Description string `json:"description"`
}

// InventoryRequest reports the remaining units of one medication in the
// cabinet.
type InventoryRequest struct {
	DeviceID     string `json:"device_id"`
	MedicationID int64  `json:"medication_id"`
	CurrentCount int    `json:"current_count"`
}

// LowInventoryThreshold is the unit count at or below which an alert log is
// raised for the cabinet.
const LowInventoryThreshold = 5

// StatusEmergency triggers an alert log in addition to the regular status
// line.
const StatusEmergency = "emergency"
