package consult

import "testing"

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		in   string
		want Urgency
	}{
		{"low", UrgencyLow},
		{"medium", UrgencyMedium},
		{"moderate", UrgencyMedium},
		{"high", UrgencyHigh},
		{"critical", UrgencyCritical},
		{"emergency", UrgencyCritical},
		{"", UrgencyMedium},
		{"whatever", UrgencyMedium},
	}
	for _, tt := range tests {
		if got := ParseUrgency(tt.in); got != tt.want {
			t.Errorf("ParseUrgency(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestUrgencyRaiseNeverLowers(t *testing.T) {
	if got := UrgencyCritical.Raise(UrgencyLow); got != UrgencyCritical {
		t.Errorf("Raise lowered urgency to %s", got)
	}
	if got := UrgencyLow.Raise(UrgencyHigh); got != UrgencyHigh {
		t.Errorf("Raise(high) = %s, want high", got)
	}
	if got := UrgencyMedium.Raise(UrgencyMedium); got != UrgencyMedium {
		t.Errorf("Raise(same) = %s, want medium", got)
	}
}

func TestRoutingDecisionSpecialties(t *testing.T) {
	rd := RoutingDecision{
		Primary:   Cardiology,
		Secondary: []Specialty{Cardiology, Neurology, InternalMedicine, Dermatology},
	}
	got := rd.Specialties(2)
	want := []Specialty{Cardiology, Neurology, InternalMedicine}
	if len(got) != len(want) {
		t.Fatalf("Specialties(2) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Specialties(2)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
