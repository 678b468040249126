package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/logger"
)

const defaultMaxRetries = 3

// OptimizerConfig holds loop tuning.
type OptimizerConfig struct {
	// MaxRetries bounds the number of revision rounds after the
	// initial evaluation.
	MaxRetries int
}

// Optimizer drives the draft through the evaluation state machine:
// DRAFTED -> EVALUATING -> PASSED/NEEDS_REVISION, with a bounded number
// of REVISING -> DRAFTED cycles before FINALIZED or REJECTED.
type Optimizer struct {
	drafter   *Drafter
	evaluator *Evaluator
	simulator Simulator
	gasPricer GasPricer
	cfg       OptimizerConfig

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewOptimizer creates an Optimizer.
func NewOptimizer(drafter *Drafter, evaluator *Evaluator, simulator Simulator,
	gasPricer GasPricer, cfg OptimizerConfig, log logger.LoggerInterface) *Optimizer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Optimizer{
		drafter:   drafter,
		evaluator: evaluator,
		simulator: simulator,
		gasPricer: gasPricer,
		cfg:       cfg,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
}

// RunLoop evaluates the draft and revises it until it passes or the
// retry budget is spent. Rounds are strictly sequential; cancellation
// is honored between every step and never yields a finalized outcome.
func (o *Optimizer) RunLoop(ctx context.Context, draft domain.Draft) (domain.Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "optimizer.RunLoop",
		trace.WithAttributes(attribute.String("kind", string(draft.Kind))))
	defer span.End()

	current := draft
	var lastResult domain.EvaluationResult
	rounds := 0

	for {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "canceled")
			return domain.Outcome{}, err
		}

		// DRAFTED -> EVALUATING
		snap, err := o.takeSnapshot(ctx, current)
		if err != nil {
			span.SetStatus(codes.Error, "canceled")
			return domain.Outcome{}, err
		}

		lastResult = o.evaluator.Evaluate(ctx, current, snap)
		rounds++

		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "canceled")
			return domain.Outcome{}, err
		}

		if lastResult.Passed {
			o.logger.Info(ctx, "draft finalized",
				"revision", current.Revision, "rounds", rounds)
			span.SetStatus(codes.Ok, "")
			return domain.Outcome{
				State:  domain.StateFinalized,
				Draft:  current,
				Rounds: rounds,
			}, nil
		}

		// NEEDS_REVISION: stop when the retry budget is spent.
		if current.Revision >= o.cfg.MaxRetries {
			reasons := lastResult.FailureReasons()
			o.logger.Warn(ctx, "draft rejected after retry limit",
				"revision", current.Revision, "reasons", reasons)
			span.SetStatus(codes.Error, "rejected")
			return domain.Outcome{
				State:   domain.StateRejected,
				Draft:   current,
				Reasons: reasons,
				Rounds:  rounds,
			}, nil
		}

		// REVISING -> DRAFTED
		revised, err := o.drafter.Revise(ctx, current, lastResult.SuggestedFixes())
		if err != nil {
			span.SetStatus(codes.Error, "revision failed")
			return domain.Outcome{
				State:   domain.StateRejected,
				Draft:   current,
				Reasons: lastResult.FailureReasons(),
				Rounds:  rounds,
			}, nil
		}
		current = revised
	}
}

// takeSnapshot gathers the external state one evaluation round runs
// against. Collaborator failures become data in the snapshot; only
// context cancellation is an error.
func (o *Optimizer) takeSnapshot(ctx context.Context, draft domain.Draft) (MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return MarketSnapshot{}, err
	}

	snap := MarketSnapshot{TakenAt: time.Now()}

	if o.gasPricer != nil {
		price, err := o.gasPricer.SuggestGasPrice(ctx)
		if err != nil {
			o.logger.Warn(ctx, "gas price unavailable for snapshot", "error", err)
		} else {
			snap.GasPrice = price
		}
	}

	if o.simulator != nil {
		sim, err := o.simulator.Simulate(ctx, draft)
		if err != nil {
			if ctx.Err() != nil {
				return MarketSnapshot{}, ctx.Err()
			}
			// Fails the correctness criterion closed.
			sim = &domain.Simulation{Success: false, RevertReason: err.Error()}
		}
		snap.Simulation = sim
	}

	return snap, ctx.Err()
}
