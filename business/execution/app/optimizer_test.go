package app

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/execution/domain"
)

type fakeSimulator struct {
	sim   *domain.Simulation
	err   error
	calls int
}

func (f *fakeSimulator) Simulate(context.Context, domain.Draft) (*domain.Simulation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sim, nil
}

type fakeGasPricer struct{}

func (fakeGasPricer) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(20e9), nil
}

func newTestOptimizer(t *testing.T, estimator *fakeEstimator, sim Simulator, maxRetries int) *Optimizer {
	t.Helper()
	drafter := newTestDrafter(&fakeWallet{}, &fakeEncoder{}, estimator)
	evaluator := newTestEvaluator(t)
	return NewOptimizer(drafter, evaluator, sim, fakeGasPricer{}, OptimizerConfig{
		MaxRetries: maxRetries,
	}, testLogger())
}

func TestRunLoop_FinalizesPassingDraft(t *testing.T) {
	o := newTestOptimizer(t, &fakeEstimator{gas: 100000},
		&fakeSimulator{sim: &domain.Simulation{Success: true}}, 3)

	outcome, err := o.RunLoop(context.Background(), passingDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Finalized() {
		t.Fatalf("outcome = %s, want FINALIZED (reasons: %v)", outcome.State, outcome.Reasons)
	}
	if outcome.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", outcome.Rounds)
	}
}

func TestRunLoop_RevisesThenFinalizes(t *testing.T) {
	o := newTestOptimizer(t, &fakeEstimator{gas: 100000},
		&fakeSimulator{sim: &domain.Simulation{Success: true}}, 3)

	draft := passingDraft()
	draft.GasLimit = 500000 // above the simple-swap ceiling

	outcome, err := o.RunLoop(context.Background(), draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Finalized() {
		t.Fatalf("outcome = %s, want FINALIZED (reasons: %v)", outcome.State, outcome.Reasons)
	}
	if outcome.Rounds != 2 {
		t.Errorf("Rounds = %d, want 2", outcome.Rounds)
	}
	if outcome.Draft.Revision != 1 {
		t.Errorf("final Revision = %d, want 1", outcome.Draft.Revision)
	}
	if outcome.Draft.GasLimit != 110000 {
		t.Errorf("final GasLimit = %d, want re-estimated 110000", outcome.Draft.GasLimit)
	}
}

func TestRunLoop_BoundedRetries(t *testing.T) {
	o := newTestOptimizer(t, &fakeEstimator{gas: 100000},
		&fakeSimulator{sim: &domain.Simulation{Success: true}}, 3)

	// Slippage failures suggest reducing size, which never lowers the
	// tolerance, so every round fails again.
	draft := passingDraft()
	draft.SlippagePct = decimal.RequireFromString("5.0")

	outcome, err := o.RunLoop(context.Background(), draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != domain.StateRejected {
		t.Fatalf("outcome = %s, want REJECTED", outcome.State)
	}
	if outcome.Rounds != 4 {
		t.Errorf("Rounds = %d, want 4 (initial evaluation plus 3 retries)", outcome.Rounds)
	}
	if outcome.Draft.Revision != 3 {
		t.Errorf("final Revision = %d, want 3", outcome.Draft.Revision)
	}
	if len(outcome.Reasons) == 0 {
		t.Fatal("rejected outcome carries no reasons")
	}
}

func TestRunLoop_RejectionReasonsAreVerbatim(t *testing.T) {
	estimator := &fakeEstimator{gas: 100000}
	sim := &fakeSimulator{sim: &domain.Simulation{Success: true}}
	o := newTestOptimizer(t, estimator, sim, 1)

	draft := passingDraft()
	draft.SlippagePct = decimal.RequireFromString("5.0")

	outcome, err := o.RunLoop(context.Background(), draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != domain.StateRejected {
		t.Fatalf("outcome = %s, want REJECTED", outcome.State)
	}

	// The surfaced reasons must match a direct evaluation of the final
	// draft, word for word.
	evaluator := newTestEvaluator(t)
	direct := evaluator.Evaluate(context.Background(), outcome.Draft, MarketSnapshot{
		GasPrice:   big.NewInt(20e9),
		Simulation: &domain.Simulation{Success: true},
	})
	if !reflect.DeepEqual(outcome.Reasons, direct.FailureReasons()) {
		t.Errorf("reasons differ:\nloop:   %v\ndirect: %v", outcome.Reasons, direct.FailureReasons())
	}
}

func TestRunLoop_SimulatorErrorFailsClosed(t *testing.T) {
	o := newTestOptimizer(t, &fakeEstimator{gas: 100000},
		&fakeSimulator{err: errors.New("alchemy unavailable")}, 2)

	outcome, err := o.RunLoop(context.Background(), passingDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != domain.StateRejected {
		t.Fatalf("outcome = %s, want REJECTED when simulation cannot run", outcome.State)
	}
}

func TestRunLoop_NilSimulatorSkipsCorrectness(t *testing.T) {
	o := newTestOptimizer(t, &fakeEstimator{gas: 100000}, nil, 2)

	outcome, err := o.RunLoop(context.Background(), passingDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Finalized() {
		t.Fatalf("outcome = %s, want FINALIZED without a simulator (reasons: %v)",
			outcome.State, outcome.Reasons)
	}
}

func TestRunLoop_HonorsCancellation(t *testing.T) {
	o := newTestOptimizer(t, &fakeEstimator{gas: 100000},
		&fakeSimulator{sim: &domain.Simulation{Success: true}}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := o.RunLoop(ctx, passingDraft())
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if outcome.Finalized() {
		t.Error("canceled run must never finalize")
	}
}
