package specialist

import (
	"fmt"

	"consilium/pkg/config"
	"consilium/pkg/consult"
	"consilium/pkg/llm"
)

// Registry maps each specialty in the closed set to its agent. Built once
// at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	agents map[consult.Specialty]*Agent
}

// NewRegistry builds an agent for every specialty in the closed set, all
// sharing the given backend client. Per-specialty temperatures come from
// the specialist config.
func NewRegistry(client llm.LLMClient, cfg *config.Config) *Registry {
	agents := make(map[consult.Specialty]*Agent, len(consult.AllSpecialties()))
	for _, specialty := range consult.AllSpecialties() {
		agents[specialty] = NewAgent(
			specialty,
			client,
			cfg.SpecialistTemperature(specialty.String()),
			cfg.Specialist.MaxTokens,
		)
	}
	return &Registry{agents: agents}
}

// Agent returns the agent for a specialty. Every member of the closed set
// has an agent; an error here means the specialty escaped parsing.
func (r *Registry) Agent(specialty consult.Specialty) (*Agent, error) {
	a, ok := r.agents[specialty]
	if !ok {
		return nil, fmt.Errorf("no agent registered for specialty %q", specialty)
	}
	return a, nil
}

// Specialties returns the specialties with registered agents in stable order.
func (r *Registry) Specialties() []consult.Specialty {
	var out []consult.Specialty
	for _, s := range consult.AllSpecialties() {
		if _, ok := r.agents[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
