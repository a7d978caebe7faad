package consult

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllSpecialtiesMembership(t *testing.T) {
	want := []Specialty{
		Cardiology, Neurology, Oncology, Pediatrics,
		Psychiatry, Dermatology, InternalMedicine, EmergencyMedicine,
		Traumatology,
	}
	assert.Equal(t, want, AllSpecialties())
	for _, s := range want {
		assert.True(t, s.IsValid(), "specialty %s", s)
	}
}

func TestParseSpecialtyClosedSet(t *testing.T) {
	for _, s := range AllSpecialties() {
		parsed, ok := ParseSpecialty(string(s), InternalMedicine)
		assert.True(t, ok, "specialty %s should parse", s)
		assert.Equal(t, s, parsed)
	}
}

func TestParseSpecialtyNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want Specialty
	}{
		{"Cardiology", Cardiology},
		{"  NEUROLOGY  ", Neurology},
		{"internal medicine", InternalMedicine},
		{"emergency-medicine", EmergencyMedicine},
	}
	for _, tt := range tests {
		got, ok := ParseSpecialty(tt.in, InternalMedicine)
		assert.True(t, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseSpecialtyAliases(t *testing.T) {
	tests := []struct {
		in   string
		want Specialty
	}{
		{"cardiac", Cardiology},
		{"mental health", Psychiatry},
		{"general practice", InternalMedicine},
		{"er", EmergencyMedicine},
		{"skin", Dermatology},
		{"cancer", Oncology},
		{"pediatric", Pediatrics},
		{"neuro", Neurology},
		{"trauma", Traumatology},
	}
	for _, tt := range tests {
		got, ok := ParseSpecialty(tt.in, InternalMedicine)
		assert.True(t, ok, "alias %q", tt.in)
		assert.Equal(t, tt.want, got, "alias %q", tt.in)
	}
}

func TestParseSpecialtyCoercesUnknown(t *testing.T) {
	got, ok := ParseSpecialty("astrology", InternalMedicine)
	assert.False(t, ok)
	assert.Equal(t, InternalMedicine, got)

	// The coerced result is always a member of the closed set.
	assert.True(t, got.IsValid())
}

func TestSpecialtyIsValidRejectsArbitrary(t *testing.T) {
	assert.False(t, Specialty("surgery").IsValid())
	assert.False(t, Specialty("").IsValid())
}
