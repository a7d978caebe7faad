// Package history defines the conversation history contract consumed by
// the orchestration engine.
package history

import (
	"context"
	"time"
)

// Speaker identifies who produced an exchange.
type Speaker string

const (
	SpeakerPatient Speaker = "patient"
	SpeakerSystem  Speaker = "system"
)

// Exchange is one prior turn in a consultation session.
type Exchange struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Provider supplies the ordered prior exchanges for a session. The engine
// treats the result as read-only input; it never writes through this
// interface.
type Provider interface {
	History(ctx context.Context, sessionID string) ([]Exchange, error)
}

// Nop is a Provider that always returns an empty history.
type Nop struct{}

// History implements Provider.
func (Nop) History(context.Context, string) ([]Exchange, error) {
	return nil, nil
}
