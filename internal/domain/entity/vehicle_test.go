package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVehicleType_IsValidAndLabel(t *testing.T) {
	tests := []struct {
		vt    VehicleType
		valid bool
		label string
	}{
		{VehicleTypeTwo, true, "Two Wheeler"},
		{VehicleTypeThree, true, "Three Wheeler"},
		{VehicleTypeFour, true, "Four Wheeler"},
		{VehicleType("two"), false, "two"},
		{VehicleType(""), false, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.vt), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.vt.IsValid())
			assert.Equal(t, tt.label, tt.vt.Label())
		})
	}
}

func TestPendingVerification_Attempts(t *testing.T) {
	p := &PendingVerification{Username: "alice"}

	for i := 0; i < MaxVerificationAttempts; i++ {
		assert.False(t, p.AttemptsExhausted())
		assert.Equal(t, MaxVerificationAttempts-i, p.RemainingAttempts())
		p.Attempts++
	}

	assert.True(t, p.AttemptsExhausted())
	assert.Equal(t, 0, p.RemainingAttempts())

	p.Attempts = MaxVerificationAttempts + 2
	assert.Equal(t, 0, p.RemainingAttempts(), "Остаток не может быть отрицательным")
}
