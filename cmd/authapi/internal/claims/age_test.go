package claims

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAge(t *testing.T) {
	tests := []struct {
		name  string
		dob   time.Time
		today time.Time
		want  int
	}{
		{"birthday today", date(2000, 6, 15), date(2025, 6, 15), 25},
		{"day before birthday", date(2000, 6, 15), date(2025, 6, 14), 24},
		{"earlier month", date(2000, 6, 15), date(2025, 5, 30), 24},
		{"later month", date(2000, 6, 15), date(2025, 7, 1), 25},
		{"leap day on non-leap feb 28", date(2004, 2, 29), date(2025, 2, 28), 20},
		{"leap day on mar 1", date(2004, 2, 29), date(2025, 3, 1), 21},
		{"leap day on leap year", date(2004, 2, 29), date(2024, 2, 29), 20},
		{"born today", date(2025, 1, 1), date(2025, 1, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Age(tt.dob, tt.today))
		})
	}
}

func TestAge_Property(t *testing.T) {
	today := date(2025, 3, 10)
	for dob := date(1990, 1, 1); dob.Before(date(1992, 12, 31)); dob = dob.AddDate(0, 0, 1) {
		want := today.Year() - dob.Year()
		if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
			want--
		}
		assert.Equal(t, want, Age(dob, today), dob.Format(DateLayout))
	}
}

func TestResourcesForScopes(t *testing.T) {
	assert.Equal(t, []string{"hospital_api", "appointment_service", "medical_records_service"},
		ResourcesForScopes([]string{"medical_records", "openid", "appointments", "api"}))
	assert.Empty(t, ResourcesForScopes([]string{"openid", "unknown"}))
}
