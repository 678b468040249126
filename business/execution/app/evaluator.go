package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/logger"
)

// EvaluatorRules are the thresholds the criteria check against.
type EvaluatorRules struct {
	// GasThresholds maps transaction kinds to their expected gas
	// ceiling. A draft fails gas-efficiency when its limit exceeds
	// 1.5x the ceiling for its kind.
	GasThresholds map[domain.TxKind]uint64

	// MaxValueWithoutReview is the wei ceiling above which a draft
	// fails the security criterion.
	MaxValueWithoutReview *big.Int

	// MaxSlippagePct is the slippage tolerance ceiling in percent.
	MaxSlippagePct decimal.Decimal

	// ChangeTolerancePct bounds the deviation between simulated and
	// expected asset changes for the correctness criterion.
	ChangeTolerancePct decimal.Decimal
}

// DefaultEvaluatorRules returns the standard rule set.
func DefaultEvaluatorRules() EvaluatorRules {
	return EvaluatorRules{
		GasThresholds: map[domain.TxKind]uint64{
			domain.KindETHTransfer:   21000,
			domain.KindERC20Transfer: 65000,
			domain.KindSimpleSwap:    150000,
			domain.KindComplexSwap:   300000,
		},
		MaxValueWithoutReview: new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		MaxSlippagePct:        decimal.RequireFromString("2.0"),
		ChangeTolerancePct:    decimal.RequireFromString("2.0"),
	}
}

// criterionFunc is a pure function from (draft, snapshot, rules) to a
// score. Criteria must not mutate their inputs; determinism of the
// whole evaluation depends on it.
type criterionFunc func(draft domain.Draft, snap MarketSnapshot, rules EvaluatorRules) domain.CriterionScore

type evaluatorMetrics struct {
	evaluationsTotal  metric.Int64Counter
	criterionFailures metric.Int64Counter
}

// Evaluator runs the four criteria concurrently against an immutable
// market snapshot.
type Evaluator struct {
	rules EvaluatorRules

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *evaluatorMetrics
}

// NewEvaluator creates an Evaluator with the given rules.
func NewEvaluator(rules EvaluatorRules, log logger.LoggerInterface) (*Evaluator, error) {
	if rules.GasThresholds == nil {
		rules = DefaultEvaluatorRules()
	}
	e := &Evaluator{
		rules:  rules,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) initMetrics() error {
	meter := otel.Meter(meterName)

	evaluations, err := meter.Int64Counter("execution.evaluations.total",
		metric.WithDescription("Total draft evaluations"))
	if err != nil {
		return err
	}
	failures, err := meter.Int64Counter("execution.criterion.failures",
		metric.WithDescription("Criterion failures by name"))
	if err != nil {
		return err
	}

	e.metrics = &evaluatorMetrics{
		evaluationsTotal:  evaluations,
		criterionFailures: failures,
	}
	return nil
}

// Evaluate runs all criteria concurrently. Each criterion writes its
// own slot of the fixed result array; the WaitGroup join is the only
// synchronization. A criterion panicking counts as failing closed.
func (e *Evaluator) Evaluate(ctx context.Context, draft domain.Draft, snap MarketSnapshot) domain.EvaluationResult {
	ctx, span := e.tracer.Start(ctx, "evaluator.Evaluate",
		trace.WithAttributes(
			attribute.Int("revision", draft.Revision),
			attribute.String("kind", string(draft.Kind)),
		))
	defer span.End()

	criteria := [domain.NumCriteria]criterionFunc{
		checkGasEfficiency,
		checkSecurity,
		checkCorrectness,
		checkSlippage,
	}
	names := [domain.NumCriteria]string{
		domain.CriterionGasEfficiency,
		domain.CriterionSecurity,
		domain.CriterionCorrectness,
		domain.CriterionSlippage,
	}

	result := domain.EvaluationResult{Revision: draft.Revision}

	var wg sync.WaitGroup
	for i := range criteria {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					result.Scores[slot] = domain.CriterionScore{
						Name:    names[slot],
						Passed:  false,
						Message: fmt.Sprintf("criterion %s failed internally: %v", names[slot], r),
					}
				}
			}()
			result.Scores[slot] = criteria[slot](draft, snap, e.rules)
		}(i)
	}
	wg.Wait()

	result.Passed = true
	for _, s := range result.Scores {
		if !s.Passed {
			result.Passed = false
			e.metrics.criterionFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("criterion", s.Name)))
		}
	}
	e.metrics.evaluationsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("passed", result.Passed)))

	if result.Passed {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, "criteria failed")
		e.logger.Debug(ctx, "draft failed evaluation",
			"revision", draft.Revision, "reasons", result.FailureReasons())
	}
	return result
}

func checkGasEfficiency(draft domain.Draft, _ MarketSnapshot, rules EvaluatorRules) domain.CriterionScore {
	threshold, ok := rules.GasThresholds[draft.Kind]
	if !ok {
		threshold = rules.GasThresholds[domain.KindComplexSwap]
	}
	ceiling := threshold + threshold/2

	if draft.GasLimit > ceiling {
		return domain.CriterionScore{
			Name:   domain.CriterionGasEfficiency,
			Passed: false,
			Message: fmt.Sprintf("gas limit %d exceeds threshold %d by more than 50%%",
				draft.GasLimit, threshold),
			Fix: &domain.SuggestedFix{
				Kind:   domain.FixReestimateGas,
				Detail: fmt.Sprintf("re-estimate gas, target %d", threshold),
			},
		}
	}
	return domain.CriterionScore{
		Name:    domain.CriterionGasEfficiency,
		Passed:  true,
		Message: fmt.Sprintf("gas limit %d is within acceptable range", draft.GasLimit),
	}
}

func checkSecurity(draft domain.Draft, _ MarketSnapshot, rules EvaluatorRules) domain.CriterionScore {
	value := draft.ValueOrZero()

	if value.Cmp(rules.MaxValueWithoutReview) > 0 {
		isSwap := draft.Kind == domain.KindSimpleSwap || draft.Kind == domain.KindComplexSwap
		if isSwap {
			// Large swaps through the public mempool are sandwich bait.
			return domain.CriterionScore{
				Name:   domain.CriterionSecurity,
				Passed: false,
				Message: fmt.Sprintf("swap value %s wei exceeds review threshold and is exposed to MEV",
					value.String()),
				Fix: &domain.SuggestedFix{
					Kind:   domain.FixReduceSize,
					Detail: "reduce trade size by 20%",
				},
			}
		}
		return domain.CriterionScore{
			Name:   domain.CriterionSecurity,
			Passed: false,
			Message: fmt.Sprintf("transaction value %s wei exceeds confirmation threshold",
				value.String()),
			Fix: &domain.SuggestedFix{
				Kind:   domain.FixSplitValue,
				Detail: "split into smaller transactions",
			},
		}
	}

	return domain.CriterionScore{
		Name:    domain.CriterionSecurity,
		Passed:  true,
		Message: "transaction value is within limits",
	}
}

func checkCorrectness(draft domain.Draft, snap MarketSnapshot, rules EvaluatorRules) domain.CriterionScore {
	if snap.Simulation == nil {
		// No simulator configured; nothing to check against.
		return domain.CriterionScore{
			Name:    domain.CriterionCorrectness,
			Passed:  true,
			Message: "no simulation requested",
		}
	}
	if !snap.Simulation.Success {
		return domain.CriterionScore{
			Name:    domain.CriterionCorrectness,
			Passed:  false,
			Message: fmt.Sprintf("transaction simulation failed: %s", snap.Simulation.RevertReason),
			Fix: &domain.SuggestedFix{
				Kind:   domain.FixReduceSize,
				Detail: "review parameters and ensure sufficient balances",
			},
		}
	}

	for symbol, expected := range snap.ExpectedChanges {
		if expected.IsZero() {
			continue
		}
		change, found := snap.Simulation.ChangeFor(symbol)
		actual := decimal.Zero
		if found {
			actual = change.Amount
		}
		deviation := actual.Sub(expected).Abs().Div(expected.Abs()).Mul(decimal.NewFromInt(100))
		if deviation.GreaterThan(rules.ChangeTolerancePct) {
			return domain.CriterionScore{
				Name:   domain.CriterionCorrectness,
				Passed: false,
				Message: fmt.Sprintf("asset %s change %s differs from expected %s",
					symbol, actual.String(), expected.String()),
				Fix: &domain.SuggestedFix{
					Kind:   domain.FixReduceSize,
					Detail: "adjust parameters to achieve the expected asset changes",
				},
			}
		}
	}

	return domain.CriterionScore{
		Name:    domain.CriterionCorrectness,
		Passed:  true,
		Message: "simulation matches expected state change",
	}
}

func checkSlippage(draft domain.Draft, _ MarketSnapshot, rules EvaluatorRules) domain.CriterionScore {
	if draft.SlippagePct.GreaterThan(rules.MaxSlippagePct) {
		return domain.CriterionScore{
			Name:   domain.CriterionSlippage,
			Passed: false,
			Message: fmt.Sprintf("slippage tolerance %s%% exceeds maximum %s%%",
				draft.SlippagePct.String(), rules.MaxSlippagePct.String()),
			Fix: &domain.SuggestedFix{
				Kind:   domain.FixReduceSize,
				Detail: "reduce transaction size or use a deeper liquidity source",
			},
		}
	}
	return domain.CriterionScore{
		Name:    domain.CriterionSlippage,
		Passed:  true,
		Message: fmt.Sprintf("slippage tolerance %s%% is acceptable", draft.SlippagePct.String()),
	}
}
