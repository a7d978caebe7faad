// Package consult defines the shared domain types that flow between the
// routing, specialist, evaluation, consensus, and safety components.
package consult

import "strings"

// Specialty is a member of the closed routing set. Downstream code never
// branches on arbitrary strings; anything unrecognized is coerced to the
// default at the parsing boundary.
type Specialty string

const (
	Cardiology        Specialty = "cardiology"
	Neurology         Specialty = "neurology"
	Oncology          Specialty = "oncology"
	Pediatrics        Specialty = "pediatrics"
	Psychiatry        Specialty = "psychiatry"
	Dermatology       Specialty = "dermatology"
	InternalMedicine  Specialty = "internal_medicine"
	EmergencyMedicine Specialty = "emergency_medicine"
	Traumatology      Specialty = "traumatology"
)

// AllSpecialties returns the closed specialty set in stable order.
func AllSpecialties() []Specialty {
	return []Specialty{
		Cardiology, Neurology, Oncology, Pediatrics,
		Psychiatry, Dermatology, InternalMedicine, EmergencyMedicine,
		Traumatology,
	}
}

// IsValid reports whether s is a member of the closed set.
func (s Specialty) IsValid() bool {
	switch s {
	case Cardiology, Neurology, Oncology, Pediatrics,
		Psychiatry, Dermatology, InternalMedicine, EmergencyMedicine,
		Traumatology:
		return true
	default:
		return false
	}
}

// String returns the wire name of the specialty.
func (s Specialty) String() string {
	return string(s)
}

// ParseSpecialty normalizes a free-form specialty name and coerces anything
// outside the closed set to fallback. The boolean reports whether the input
// was recognized.
func ParseSpecialty(raw string, fallback Specialty) (Specialty, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	s := Specialty(normalized)
	if s.IsValid() {
		return s, true
	}

	// Common aliases seen in backend output.
	switch normalized {
	case "cardiac", "cardiovascular":
		return Cardiology, true
	case "neuro", "neurological":
		return Neurology, true
	case "cancer", "oncological":
		return Oncology, true
	case "paediatrics", "pediatric":
		return Pediatrics, true
	case "psychology", "mental_health", "psychiatric":
		return Psychiatry, true
	case "skin", "dermatological":
		return Dermatology, true
	case "general", "general_medicine", "general_practice", "family_medicine":
		return InternalMedicine, true
	case "emergency", "er", "urgent_care":
		return EmergencyMedicine, true
	case "trauma", "trauma_surgery", "orthopedic_trauma":
		return Traumatology, true
	}

	return fallback, false
}
