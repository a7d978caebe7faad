// Package safety applies the final deterministic checks before a response
// is released. Nothing in this package calls a completion backend: the
// last line of defense must work during a total outage.
package safety

import (
	"fmt"
	"strings"

	"consilium/pkg/consult"
	"consilium/pkg/logx"
)

const emergencyNotice = `** IMPORTANT: Your message describes symptoms that may require EMERGENCY medical care. **

If you or someone near you is experiencing a medical emergency, call your local emergency number (911 in the US) or go to the nearest emergency department NOW. Do not wait for an online response.`

const disclaimer = `This information is for educational purposes only and is not a substitute for professional medical advice, diagnosis, or treatment. Always consult a qualified healthcare provider about your specific situation.`

const fallbackText = `We were unable to generate a verified answer to your question right now.

Your question matters. Please contact a healthcare professional directly: your primary care provider, a local clinic, or a nurse advice line can help. If your symptoms are severe or getting worse, seek urgent or emergency care.`

// Gate is the final deterministic filter. It is pure: same inputs, same
// output, no backend calls.
type Gate struct {
	logger *logx.Logger
}

// NewGate creates a safety Gate.
func NewGate() *Gate {
	return &Gate{logger: logx.NewLogger("safety")}
}

// Finalize turns a consensus result into the response the caller receives.
// An emergency flag always prepends the emergency notice regardless of
// response quality. A consultation with no verified answer at all gets the
// static fallback text instead of an error.
func (g *Gate) Finalize(consultID string, routing consult.RoutingDecision, result consult.ConsensusResult, allExhausted bool) consult.FinalResponse {
	resp := consult.FinalResponse{
		ConsultID: consultID,
		Emergency: routing.Emergency,
		Urgency:   routing.Urgency.String(),
	}

	if allExhausted || strings.TrimSpace(result.Text) == "" {
		g.logger.Warn("consult %s released fallback response: no verified answer", consultID)
		resp.Status = consult.StatusFallback
		resp.Text = g.compose(routing.Emergency, fallbackText)
		resp.Degraded = result.Degraded
		return resp
	}

	resp.Status = consult.StatusReleased
	resp.Text = g.compose(routing.Emergency, result.Text)
	resp.Contributing = result.Contributing
	resp.Degraded = result.Degraded
	return resp
}

// Blocked produces the response for a consultation rejected before
// generation, such as invalid input.
func (g *Gate) Blocked(consultID string, reason string) consult.FinalResponse {
	return consult.FinalResponse{
		ConsultID: consultID,
		Status:    consult.StatusBlocked,
		Text:      fmt.Sprintf("This request could not be processed: %s", reason),
	}
}

func (g *Gate) compose(emergency bool, body string) string {
	var out strings.Builder
	if emergency {
		out.WriteString(emergencyNotice)
		out.WriteString("\n\n---\n\n")
	}
	out.WriteString(strings.TrimSpace(body))
	out.WriteString("\n\n---\n\n")
	out.WriteString(disclaimer)
	return out.String()
}
