package consult

import "strings"

// Urgency is the ordinal urgency level of a consultation.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

// String returns the wire name of the urgency level.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	default:
		return "medium"
	}
}

// ParseUrgency maps a free-form urgency name to its level, defaulting to
// medium for anything unrecognized.
func ParseUrgency(raw string) Urgency {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return UrgencyLow
	case "medium", "moderate":
		return UrgencyMedium
	case "high":
		return UrgencyHigh
	case "critical", "emergency":
		return UrgencyCritical
	default:
		return UrgencyMedium
	}
}

// Raise returns the higher of u and other. Urgency is only ever raised by
// explicit override, never silently lowered.
func (u Urgency) Raise(other Urgency) Urgency {
	if other > u {
		return other
	}
	return u
}
