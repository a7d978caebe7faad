package triage

import "strings"

// emergencyKeywords are scanned against the raw query text. The scan is
// deliberately independent of backend routing so an outage can never mask
// an emergency.
//
//nolint:gochecknoglobals // Static keyword table
var emergencyKeywords = []string{
	"can't breathe", "cannot breathe", "difficulty breathing",
	"chest pain", "crushing chest", "heart attack", "stroke",
	"unconscious", "severe bleeding", "seizure", "convulsion",
	"suicide", "suicidal", "overdose", "poisoning",
	"anaphylaxis", "not breathing",
}

// EmergencyScan reports whether the text matches any emergency pattern and
// returns the matched terms.
func EmergencyScan(text string) (bool, []string) {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return len(matched) > 0, matched
}
