package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
	"github.com/saturnpm/saturn/saturn/tools"
)

// DefaultMaxSteps bounds node executions per turn. Ten steps accommodates the
// longest legitimate flow (plan, read, plan, read, plan) with headroom.
const DefaultMaxSteps = 10

// ErrStepLimit is returned when a single turn exceeds the node-step ceiling,
// which indicates a routing bug rather than a long-running request.
var ErrStepLimit = errors.New("turn exceeded the orchestrator step limit")

// Engine runs one conversation turn through the plan / execute / approval
// graph. It holds no per-thread state and is safe for concurrent use.
type Engine struct {
	registry *tools.Registry
	oracle   Planner
	fallback Planner
	tracer   ports.Tracer
	logger   zerolog.Logger
	maxSteps int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithOracle installs the LLM-backed planner. Without one the engine plans
// with the deterministic fallback only.
func WithOracle(p Planner) EngineOption {
	return func(e *Engine) { e.oracle = p }
}

// WithTracer installs a span tracer.
func WithTracer(t ports.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithMaxSteps overrides the per-turn step ceiling.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine builds an engine over the given tool registry.
func NewEngine(registry *tools.Registry, logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: registry,
		fallback: NewFallbackPlanner(),
		tracer:   noopTracer{},
		logger:   logger,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// noopTracer is the default tracer when none is injected.
type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string, _ map[string]any) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (noopTracer) Event(context.Context, string, map[string]any) {}

// RunTurn advances state by one conversation turn, mutating it in place.
// Entry is always the plan node; a write that was pending when the turn began
// is routed to the approval node instead of being re-planned.
func (e *Engine) RunTurn(ctx context.Context, state *State) error {
	pendingAtEntry := state.NextAction != nil

	node := nodePlan
	for steps := 0; node != nodeEnd; steps++ {
		if steps >= e.maxSteps {
			e.logger.Error().Int("max_steps", e.maxSteps).Msg("Turn aborted at step ceiling")
			return fmt.Errorf("%w (max %d)", ErrStepLimit, e.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		switch node {
		case nodePlan:
			state.Apply(e.planNode(ctx, state))
			node = routeFromPlan(state, pendingAtEntry)
		case nodeApproval:
			state.Apply(e.humanApprovalNode(ctx, state))
			node = routeFromApproval(state)
		case nodeExecute:
			state.Apply(e.executeToolNode(ctx, state))
			node = routeFromExecute(state)
		}
	}
	return nil
}
