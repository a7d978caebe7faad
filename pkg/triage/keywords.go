package triage

import (
	"sort"
	"strings"

	"consilium/pkg/consult"
)

// specialtyKeywords is the curated table behind the deterministic fallback
// classifier. It is intentionally small: its job is a best-effort routing
// decision when the backend is unreachable, not linguistic coverage.
//
//nolint:gochecknoglobals // Static keyword table
var specialtyKeywords = map[consult.Specialty][]string{
	consult.Cardiology: {
		"heart", "chest pain", "palpitation", "blood pressure",
		"hypertension", "arrhythmia", "cardiac",
	},
	consult.Neurology: {
		"headache", "migraine", "seizure", "numbness", "dizziness",
		"memory", "tremor", "stroke",
	},
	consult.Oncology: {
		"cancer", "tumor", "tumour", "lump", "chemotherapy", "biopsy",
	},
	consult.Pediatrics: {
		"child", "baby", "infant", "toddler", "my son", "my daughter",
		"vaccine",
	},
	consult.Psychiatry: {
		"anxiety", "depression", "panic", "insomnia", "stress",
		"suicidal", "mood",
	},
	consult.Dermatology: {
		"rash", "skin", "acne", "mole", "itch", "eczema", "psoriasis",
	},
	consult.EmergencyMedicine: {
		"emergency", "bleeding", "unconscious", "overdose", "poisoning",
		"can't breathe", "accident",
	},
	consult.Traumatology: {
		"fracture", "broken bone", "sprain", "injury", "wound",
		"fell", "twisted",
	},
}

// classifyByKeywords scores each specialty by matched keyword count and
// returns the winner plus ranked runners-up. With no matches at all, the
// default specialty wins alone.
func classifyByKeywords(text string, defaultSpecialty consult.Specialty) (consult.Specialty, []consult.Specialty, []string) {
	lower := strings.ToLower(text)

	type hit struct {
		specialty consult.Specialty
		count     int
	}
	var hits []hit
	var matched []string

	for _, specialty := range consult.AllSpecialties() {
		count := 0
		for _, kw := range specialtyKeywords[specialty] {
			if strings.Contains(lower, kw) {
				count++
				matched = append(matched, kw)
			}
		}
		if count > 0 {
			hits = append(hits, hit{specialty: specialty, count: count})
		}
	}

	if len(hits) == 0 {
		return defaultSpecialty, nil, nil
	}

	// Stable order: count desc, then the closed-set order already walked.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].count > hits[j].count
	})

	primary := hits[0].specialty
	var secondary []consult.Specialty
	for _, h := range hits[1:] {
		secondary = append(secondary, h.specialty)
	}
	return primary, secondary, matched
}
