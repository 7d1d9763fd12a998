package prescription

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestActiveAt_InclusiveBounds(t *testing.T) {
	p := Prescription{StartDate: date(2026, 3, 1), EndDate: date(2026, 3, 10)}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", date(2026, 2, 28), false},
		{"first day", date(2026, 3, 1), true},
		{"middle", date(2026, 3, 5), true},
		{"last day midnight", date(2026, 3, 10), true},
		{"last day evening", time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC), true},
		{"day after", date(2026, 3, 11), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.ActiveAt(tc.at); got != tc.want {
				t.Errorf("ActiveAt(%s) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestFindMedication(t *testing.T) {
	p := Prescription{Medications: []*LineItem{
		{MedicationID: 3, Dosage: 500},
		{MedicationID: 8, Dosage: 250},
	}}

	li := p.FindMedication(3)
	if li == nil || li.Dosage != 500 {
		t.Errorf("FindMedication(3) = %+v", li)
	}
	if p.FindMedication(99) != nil {
		t.Error("expected nil for unknown medication")
	}
}
