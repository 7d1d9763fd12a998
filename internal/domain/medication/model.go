package medication

import "time"

// Medication is one drug catalog entry.
type Medication struct {
	ID                int64     `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Barcode           string    `db:"barcode" json:"barcode"`
	Description       *string   `db:"description" json:"description,omitempty"`
	StorageConditions *string   `db:"storage_conditions" json:"storage_conditions,omitempty"`
	Contraindications *string   `db:"contraindications" json:"contraindications,omitempty"`
	SideEffects       *string   `db:"side_effects" json:"side_effects,omitempty"`
	StrengthAmount    float64   `db:"strength_amount" json:"strength_amount"`
	StrengthUnit      string    `db:"strength_unit" json:"strength_unit"`
	VolumePerBlister  float64   `db:"volume_per_blister" json:"volume_per_blister"`
	VolumePerPackage  float64   `db:"volume_per_package" json:"volume_per_package"`
	VolumeUnit        string    `db:"volume_unit" json:"volume_unit"`
	PricePerBlister   float64   `db:"price_per_blister" json:"price_per_blister"`
	ImageURL          *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Stock is one received batch of a medication at a workplace.
type Stock struct {
	ID             int64      `db:"id" json:"id"`
	MedicationID   int64      `db:"medication_id" json:"medication_id"`
	WorkplaceID    int64      `db:"workplace_id" json:"workplace_id"`
	Quantity       int        `db:"quantity" json:"quantity"`
	ProductionDate *time.Time `db:"production_date" json:"production_date,omitempty"`
	ExpirationDate *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	ReceivedAt     time.Time  `db:"received_at" json:"received_at"`
}
