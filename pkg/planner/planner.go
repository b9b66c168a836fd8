// Package planner coordinates the weather, flights and hotels agents for one trip.
package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripplanner/pkg/agent/llm"
	"tripplanner/pkg/agent/middleware/metrics"
	"tripplanner/pkg/agent/toolloop"
	"tripplanner/pkg/contextmgr"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/trip"
)

// Stage says where an agent run failed.
type Stage string

const (
	StageBuild    Stage = "build"
	StageLoop     Stage = "loop"
	StageFinalize Stage = "finalize"
)

// AgentFailure is returned by RunAgent when an agent cannot produce an answer.
type AgentFailure struct {
	Agent string
	Stage Stage
	Err   error
}

func (f *AgentFailure) Error() string {
	return fmt.Sprintf("%s failed during %s: %v", f.Agent, f.Stage, f.Err)
}

func (f *AgentFailure) Unwrap() error { return f.Err }

// Store persists finished trips with the conversation of every agent that ran.
// Implemented by persistence.TripStore.
type Store interface {
	SaveTrip(ctx context.Context, result *trip.Result, transcripts []*contextmgr.ContextManager) (string, error)
}

type agentBuilder struct {
	name        string
	placeholder string
	build       func(trip.Request) (AgentSpec, error)
}

// Slots in the result, in order: weather, flight, hotel.
var agentBuilders = []agentBuilder{ //nolint:gochecknoglobals
	{WeatherAgentName, WeatherPlaceholder, WeatherAgent},
	{FlightsAgentName, FlightPlaceholder, FlightsAgent},
	{HotelsAgentName, HotelsPlaceholder, HotelsAgent},
}

// Planner runs one agent per trip concern and merges their answers.
type Planner struct {
	client        llm.LLMClient
	dispatcher    toolloop.Dispatcher
	recorder      metrics.Recorder
	store         Store
	logger        *logx.Logger
	maxIterations int
	maxTokens     int
	temperature   float32
	debugLogging  bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithStore saves every planned trip.
func WithStore(store Store) Option {
	return func(p *Planner) { p.store = store }
}

// WithRecorder records agent loop outcomes.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(p *Planner) { p.recorder = recorder }
}

// WithMaxIterations overrides toolloop.DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(p *Planner) { p.maxIterations = n }
}

// WithModelParams sets the completion size and temperature of every consultation.
func WithModelParams(maxTokens int, temperature float32) Option {
	return func(p *Planner) {
		p.maxTokens = maxTokens
		p.temperature = temperature
	}
}

// WithLogger replaces the default "planner" logger.
func WithLogger(logger *logx.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithDebugLogging logs every message each agent sends to the model.
func WithDebugLogging(enabled bool) Option {
	return func(p *Planner) { p.debugLogging = enabled }
}

// New creates a planner. The client and dispatcher are shared by all agents.
func New(client llm.LLMClient, dispatcher toolloop.Dispatcher, opts ...Option) *Planner {
	p := &Planner{
		client:     client,
		dispatcher: dispatcher,
		recorder:   metrics.Nop(),
		logger:     logx.NewLogger("planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunAgent runs the tool loop for one agent and then asks for its final answer.
// Loops that end without an LLM error (final answer, no message, stuck,
// iteration limit) all proceed to the final answer.
func (p *Planner) RunAgent(ctx context.Context, spec AgentSpec) (string, error) {
	answer, _, err := p.runAgent(ctx, spec)
	return answer, err
}

func (p *Planner) runAgent(ctx context.Context, spec AgentSpec) (string, *contextmgr.ContextManager, error) {
	conv := contextmgr.NewContextManager(spec.Name,
		llm.NewSystemMessage(spec.System),
		llm.NewUserMessage(spec.User),
	)
	cfg := &toolloop.Config{
		Name:          spec.Name,
		Conversation:  conv,
		Dispatcher:    p.dispatcher,
		MaxIterations: p.maxIterations,
		MaxTokens:     p.maxTokens,
		Temperature:   p.temperature,
		DebugLogging:  p.debugLogging,
	}
	loop := toolloop.New(p.client, p.logger.WithAgentID(spec.Name))

	out := loop.Run(ctx, cfg)
	p.recorder.ObserveAgentOutcome(spec.Name, out.Kind.String(), out.Iterations)
	if out.Kind == toolloop.OutcomeLLMError {
		return "", conv, &AgentFailure{Agent: spec.Name, Stage: StageLoop, Err: out.Err}
	}

	answer, err := loop.Finalize(ctx, cfg, spec.FinalInstruction)
	if err != nil {
		return "", conv, &AgentFailure{Agent: spec.Name, Stage: StageFinalize, Err: err}
	}
	return answer, conv, nil
}

// AnswerOrPlaceholder maps an agent run to the text shown to the user.
func AnswerOrPlaceholder(answer string, err error, spec AgentSpec) string {
	if err != nil || answer == "" {
		return spec.Placeholder
	}
	return answer
}

// PlanTrip runs every agent concurrently and merges their answers into the request.
// Agent failures become placeholders; PlanTrip itself never fails.
func (p *Planner) PlanTrip(ctx context.Context, req trip.Request) trip.Result {
	start := time.Now()
	p.logger.Info("🧭 Planning trip %s → %s (%s to %s, %d travellers)", req.From, req.To, req.Start, req.End, req.Travellers)

	answers := make([]*string, len(agentBuilders))
	transcripts := make([]*contextmgr.ContextManager, len(agentBuilders))

	var wg sync.WaitGroup
	for i := range agentBuilders {
		wg.Add(1)
		go func(slot int, b agentBuilder) {
			defer wg.Done()
			answers[slot], transcripts[slot] = p.settle(ctx, req, b)
		}(i, agentBuilders[i])
	}
	wg.Wait()

	result := trip.NewResult(req, answers[0], answers[1], answers[2])
	p.logger.Info("🏁 Trip planned in %.3gs (complete: %t)", time.Since(start).Seconds(), result.Complete())

	if p.store != nil {
		// Persisting must not depend on the caller still waiting.
		id, err := p.store.SaveTrip(context.WithoutCancel(ctx), &result, compact(transcripts))
		if err != nil {
			p.logger.Warn("⚠️  Failed to save trip: %v", err)
		} else {
			result.ID = id
		}
	}
	return result
}

// settle runs one agent and always yields an answer, recovering from panics.
func (p *Planner) settle(ctx context.Context, req trip.Request, b agentBuilder) (answer *string, conv *contextmgr.ContextManager) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("💥 %s panicked: %v", b.name, r)
			text := b.placeholder
			answer = &text
		}
	}()

	spec, err := b.build(req)
	var text string
	if err != nil {
		err = &AgentFailure{Agent: b.name, Stage: StageBuild, Err: err}
	} else {
		text, conv, err = p.runAgent(ctx, spec)
	}
	if err != nil {
		p.logger.Error("❌ %v", err)
	}

	text = AnswerOrPlaceholder(text, err, spec)
	return &text, conv
}

// compact drops the transcripts of agents that never started.
func compact(convs []*contextmgr.ContextManager) []*contextmgr.ContextManager {
	out := make([]*contextmgr.ContextManager, 0, len(convs))
	for _, c := range convs {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
