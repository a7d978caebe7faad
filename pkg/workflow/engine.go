package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"consilium/pkg/config"
	"consilium/pkg/consensus"
	"consilium/pkg/consult"
	"consilium/pkg/history"
	"consilium/pkg/logx"
	"consilium/pkg/metrics"
	"consilium/pkg/promptbudget"
	"consilium/pkg/review"
	"consilium/pkg/safety"
	"consilium/pkg/specialist"
	"consilium/pkg/triage"
)

// Sink receives completed consultations for durable storage. Persistence
// failures are logged, never surfaced to the caller.
type Sink interface {
	RecordConsult(ctx context.Context, consultID, sessionID, query, specialty, status string, emergency bool, attempts map[string]int) error
	AppendExchange(ctx context.Context, sessionID string, ex history.Exchange) error
}

// Engine orchestrates one consultation end to end. It owns the
// WorkflowState; the router, agents, evaluator, builder, and gate are
// stateless collaborators.
type Engine struct {
	cfg       *config.Config
	router    *triage.Router
	registry  *specialist.Registry
	evaluator *review.Evaluator
	builder   *consensus.Builder
	gate      *safety.Gate
	histories history.Provider
	counter   *promptbudget.Counter
	recorder  metrics.Recorder
	sink      Sink
	logger    *logx.Logger
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithHistoryProvider sets the session history source.
func WithHistoryProvider(p history.Provider) EngineOption {
	return func(e *Engine) { e.histories = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithSink sets the persistence sink.
func WithSink(s Sink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// NewEngine wires the consultation pipeline together.
func NewEngine(
	cfg *config.Config,
	router *triage.Router,
	registry *specialist.Registry,
	evaluator *review.Evaluator,
	builder *consensus.Builder,
	gate *safety.Gate,
	opts ...EngineOption,
) (*Engine, error) {
	counter, err := promptbudget.NewCounter()
	if err != nil {
		return nil, fmt.Errorf("initializing token counter: %w", err)
	}
	e := &Engine{
		cfg:       cfg,
		router:    router,
		registry:  registry,
		evaluator: evaluator,
		builder:   builder,
		gate:      gate,
		histories: history.Nop{},
		counter:   counter,
		recorder:  metrics.NopRecorder{},
		logger:    logx.NewLogger("workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Consult runs one query through the full pipeline and always returns a
// response. Only invalid input and context cancellation surface as errors.
func (e *Engine) Consult(ctx context.Context, query consult.Query) (consult.FinalResponse, error) {
	if query.ID == "" {
		query.ID = uuid.New().String()
	}
	state := NewWorkflowState(query.ID)
	e.logger.Info("consult %s started", state.ConsultID())

	resp, err := e.run(ctx, state, query)
	if err != nil {
		e.fail(state)
		if errors.Is(err, consult.ErrInvalidInput) {
			e.record(state, consult.StatusBlocked)
			return e.gate.Blocked(state.ConsultID(), err.Error()), err
		}
		e.record(state, "failed")
		return consult.FinalResponse{}, err
	}

	if terr := state.Transition(StatusDone); terr != nil {
		e.logger.Error("consult %s: %v", state.ConsultID(), terr)
	}
	e.record(state, resp.Status)
	e.persist(state, query, resp)
	e.logger.Info("consult %s finished: status=%s elapsed=%s", state.ConsultID(), resp.Status, state.Elapsed().Round(time.Millisecond))
	return resp, nil
}

func (e *Engine) run(ctx context.Context, state *WorkflowState, query consult.Query) (consult.FinalResponse, error) {
	// Routing.
	exchanges, err := e.loadHistory(ctx, query)
	if err != nil {
		e.logger.Warn("consult %s: history load failed, continuing without: %v", state.ConsultID(), err)
	}
	query.History = exchanges

	routing, err := e.router.Route(ctx, query)
	if err != nil {
		return consult.FinalResponse{}, err
	}
	state.SetRouting(routing)
	if err := state.Transition(StatusConsulting); err != nil {
		return consult.FinalResponse{}, err
	}

	// Specialist fan-out. Each specialty runs its own improvement loop
	// concurrently; one specialty's failure never aborts its siblings.
	specialties := routing.Specialties(e.cfg.Workflow.SecondaryLimit)
	results := e.fanOut(ctx, state, query, specialties)
	if ctx.Err() != nil {
		return consult.FinalResponse{}, ctx.Err()
	}
	// The loops flip between evaluating and retrying; if every generation
	// failed before a single evaluation the status is still consulting.
	if state.Status() == StatusConsulting {
		state.MaybeTransition(StatusEvaluating)
	}

	for _, r := range results {
		e.recorder.RecordAttempts(r.specialty.String(), r.attempts)
	}

	// Consensus.
	if err := state.Transition(StatusBuildingConsensus); err != nil {
		return consult.FinalResponse{}, err
	}
	passing := state.Passing(specialties)
	degraded := state.Degraded(specialties)

	var merged consult.ConsensusResult
	allExhausted := len(passing) == 0
	if allExhausted {
		merged = consult.ConsensusResult{Degraded: degraded}
	} else {
		merged, err = e.builder.Build(ctx, query, passing, degraded)
		if err != nil {
			e.logger.Warn("consult %s: consensus failed: %v", state.ConsultID(), err)
			merged = consult.ConsensusResult{Degraded: degraded}
			allExhausted = true
		}
	}

	// Safety gate.
	if err := state.Transition(StatusSafetyChecking); err != nil {
		return consult.FinalResponse{}, err
	}
	return e.gate.Finalize(state.ConsultID(), routing, merged, allExhausted), nil
}

// fanOut runs every specialty's improvement loop concurrently and waits
// for all of them.
func (e *Engine) fanOut(ctx context.Context, state *WorkflowState, query consult.Query, specialties []consult.Specialty) []loopResult {
	results := make([]loopResult, len(specialties))
	var wg sync.WaitGroup
	for i, specialty := range specialties {
		agent, err := e.registry.Agent(specialty)
		if err != nil {
			e.logger.Error("consult %s: %v", state.ConsultID(), err)
			state.MarkDegraded(specialty)
			results[i] = loopResult{specialty: specialty}
			continue
		}
		wg.Add(1)
		go func(i int, agent *specialist.Agent) {
			defer wg.Done()
			results[i] = runImprovementLoop(ctx, state, agent, e.evaluator, query, query.History, e.cfg.Workflow.MaxAttempts, e.logger)
		}(i, agent)
	}
	wg.Wait()
	return results
}

func (e *Engine) loadHistory(ctx context.Context, query consult.Query) ([]history.Exchange, error) {
	if query.SessionID == "" {
		return nil, nil
	}
	exchanges, err := e.histories.History(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}
	return e.counter.TrimHistory(exchanges, e.cfg.History.TokenBudget), nil
}

func (e *Engine) fail(state *WorkflowState) {
	if !state.Status().Terminal() {
		if err := state.Transition(StatusFailed); err != nil {
			e.logger.Error("consult %s: %v", state.ConsultID(), err)
		}
	}
}

// record emits metrics for a finished consultation.
func (e *Engine) record(state *WorkflowState, status consult.FinalStatus) {
	e.recorder.RecordConsult(string(status), state.Routing().Emergency, state.Elapsed())
}

// persist writes the finished consultation to the sink. Best effort; a
// storage error never fails a consultation that already produced a
// response.
func (e *Engine) persist(state *WorkflowState, query consult.Query, resp consult.FinalResponse) {
	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	attempts := make(map[string]int)
	for specialty, n := range state.Attempts() {
		attempts[specialty.String()] = n
	}

	if err := e.sink.RecordConsult(ctx, resp.ConsultID, query.SessionID, query.Text, state.Routing().Primary.String(), string(resp.Status), resp.Emergency, attempts); err != nil {
		e.logger.Warn("consult %s: persist failed: %v", resp.ConsultID, err)
	}
	if query.SessionID != "" {
		now := time.Now()
		if err := e.sink.AppendExchange(ctx, query.SessionID, history.Exchange{Speaker: history.SpeakerPatient, Text: query.Text, Timestamp: now}); err != nil {
			e.logger.Warn("consult %s: exchange persist failed: %v", resp.ConsultID, err)
		}
		if err := e.sink.AppendExchange(ctx, query.SessionID, history.Exchange{Speaker: history.SpeakerSystem, Text: resp.Text, Timestamp: now}); err != nil {
			e.logger.Warn("consult %s: exchange persist failed: %v", resp.ConsultID, err)
		}
	}
}
