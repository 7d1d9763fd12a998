package device

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Device is a field dispensing unit. Name is the external identifier devices
// present on the wire; the numeric id stays internal.
type Device struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	WorkplaceID int64     `db:"workplace_id" json:"workplace_id"`
	APIKey      string    `db:"api_key" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// LastActivity is the newest log entry timestamp, filled by List only.
	// Nil for a device that has never reported.
	LastActivity *time.Time `db:"last_activity" json:"last_activity,omitempty"`
}

// Log severities.
const (
	SeverityInfo  = "info"
	SeverityAlert = "alert"
)

// Log is one append-only audit line for a device.
type Log struct {
	ID          int64     `db:"id" json:"id"`
	DeviceID    int64     `db:"device_id" json:"device_id"`
	Severity    string    `db:"severity" json:"severity"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NewAPIKey returns a fresh device credential.
func NewAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
