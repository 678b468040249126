package app

import (
	"context"
	"math/big"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/execution/domain"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(DefaultEvaluatorRules(), testLogger())
	if err != nil {
		t.Fatalf("failed to create evaluator: %v", err)
	}
	return e
}

func passingDraft() domain.Draft {
	return domain.Draft{
		From:        testWallet,
		To:          testRouter,
		Value:       big.NewInt(1e15), // 0.001 ETH
		GasLimit:    120000,
		Kind:        domain.KindSimpleSwap,
		SlippagePct: decimal.RequireFromString("0.5"),
	}
}

func passingSnapshot() MarketSnapshot {
	return MarketSnapshot{
		GasPrice:   big.NewInt(20e9),
		Simulation: &domain.Simulation{Success: true},
	}
}

func TestEvaluate_AllCriteriaPass(t *testing.T) {
	e := newTestEvaluator(t)

	result := e.Evaluate(context.Background(), passingDraft(), passingSnapshot())
	if !result.Passed {
		t.Fatalf("expected pass, got failures: %v", result.FailureReasons())
	}
	for i, score := range result.Scores {
		if score.Name == "" {
			t.Errorf("slot %d has no criterion name", i)
		}
		if !score.Passed {
			t.Errorf("criterion %s failed: %s", score.Name, score.Message)
		}
	}
}

func TestEvaluate_SlotOrderIsFixed(t *testing.T) {
	e := newTestEvaluator(t)

	result := e.Evaluate(context.Background(), passingDraft(), passingSnapshot())
	want := [domain.NumCriteria]string{
		domain.CriterionGasEfficiency,
		domain.CriterionSecurity,
		domain.CriterionCorrectness,
		domain.CriterionSlippage,
	}
	for i, name := range want {
		if result.Scores[i].Name != name {
			t.Errorf("slot %d = %s, want %s", i, result.Scores[i].Name, name)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := newTestEvaluator(t)

	draft := passingDraft()
	draft.GasLimit = 500000 // fails gas-efficiency
	draft.SlippagePct = decimal.RequireFromString("3.0")
	snap := MarketSnapshot{
		Simulation: &domain.Simulation{Success: false, RevertReason: "insufficient balance"},
	}

	first := e.Evaluate(context.Background(), draft, snap)
	for i := 0; i < 10; i++ {
		again := e.Evaluate(context.Background(), draft, snap)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

func TestEvaluate_GasEfficiency(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name     string
		kind     domain.TxKind
		gasLimit uint64
		wantPass bool
	}{
		{"eth transfer at threshold", domain.KindETHTransfer, 21000, true},
		{"eth transfer at ceiling", domain.KindETHTransfer, 31500, true},
		{"eth transfer above ceiling", domain.KindETHTransfer, 31501, false},
		{"simple swap within range", domain.KindSimpleSwap, 150000, true},
		{"simple swap above ceiling", domain.KindSimpleSwap, 226000, false},
		{"complex swap within range", domain.KindComplexSwap, 400000, true},
		{"complex swap above ceiling", domain.KindComplexSwap, 450001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := passingDraft()
			draft.Kind = tt.kind
			draft.GasLimit = tt.gasLimit

			result := e.Evaluate(context.Background(), draft, passingSnapshot())
			score := result.Scores[0]
			if score.Passed != tt.wantPass {
				t.Errorf("gas criterion passed = %t, want %t (%s)", score.Passed, tt.wantPass, score.Message)
			}
			if !tt.wantPass && score.Fix == nil {
				t.Error("failed criterion has no suggested fix")
			}
		})
	}
}

func TestEvaluate_SecurityValueCeiling(t *testing.T) {
	e := newTestEvaluator(t)
	oneETH := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	draft := passingDraft()
	draft.Value = new(big.Int).Add(oneETH, big.NewInt(1))

	result := e.Evaluate(context.Background(), draft, passingSnapshot())
	score := result.Scores[1]
	if score.Passed {
		t.Fatal("swap above 1 ETH should fail the security criterion")
	}
	if score.Fix == nil || score.Fix.Kind != domain.FixReduceSize {
		t.Errorf("fix = %+v, want reduce_size", score.Fix)
	}

	// Exactly at the ceiling passes.
	draft.Value = oneETH
	result = e.Evaluate(context.Background(), draft, passingSnapshot())
	if !result.Scores[1].Passed {
		t.Error("value exactly at the ceiling should pass")
	}
}

func TestEvaluate_CorrectnessSimulation(t *testing.T) {
	e := newTestEvaluator(t)

	t.Run("failed simulation fails closed", func(t *testing.T) {
		snap := passingSnapshot()
		snap.Simulation = &domain.Simulation{Success: false, RevertReason: "execution reverted"}

		result := e.Evaluate(context.Background(), passingDraft(), snap)
		score := result.Scores[2]
		if score.Passed {
			t.Error("failed simulation should fail the correctness criterion")
		}
	})

	t.Run("asset change outside tolerance", func(t *testing.T) {
		snap := passingSnapshot()
		snap.Simulation = &domain.Simulation{
			Success: true,
			Changes: []domain.AssetChange{
				{Symbol: "USDC", Amount: decimal.RequireFromString("970")},
			},
		}
		snap.ExpectedChanges = map[string]decimal.Decimal{
			"USDC": decimal.RequireFromString("1000"),
		}

		result := e.Evaluate(context.Background(), passingDraft(), snap)
		if result.Scores[2].Passed {
			t.Error("3% deviation should exceed the 2% tolerance")
		}
	})

	t.Run("asset change within tolerance", func(t *testing.T) {
		snap := passingSnapshot()
		snap.Simulation = &domain.Simulation{
			Success: true,
			Changes: []domain.AssetChange{
				{Symbol: "USDC", Amount: decimal.RequireFromString("985")},
			},
		}
		snap.ExpectedChanges = map[string]decimal.Decimal{
			"USDC": decimal.RequireFromString("1000"),
		}

		result := e.Evaluate(context.Background(), passingDraft(), snap)
		if !result.Scores[2].Passed {
			t.Errorf("1.5%% deviation should pass: %s", result.Scores[2].Message)
		}
	})
}

func TestEvaluate_SlippageBounds(t *testing.T) {
	e := newTestEvaluator(t)

	draft := passingDraft()
	draft.SlippagePct = decimal.RequireFromString("2.0")
	result := e.Evaluate(context.Background(), draft, passingSnapshot())
	if !result.Scores[3].Passed {
		t.Error("slippage exactly at the maximum should pass")
	}

	draft.SlippagePct = decimal.RequireFromString("2.1")
	result = e.Evaluate(context.Background(), draft, passingSnapshot())
	if result.Scores[3].Passed {
		t.Error("slippage above the maximum should fail")
	}
	if result.Passed {
		t.Error("one failed criterion must fail the whole evaluation")
	}
}

func TestEvaluationResult_Accessors(t *testing.T) {
	result := domain.EvaluationResult{
		Scores: [domain.NumCriteria]domain.CriterionScore{
			{Name: domain.CriterionGasEfficiency, Passed: true, Message: "ok"},
			{Name: domain.CriterionSecurity, Passed: false, Message: "value too high",
				Fix: &domain.SuggestedFix{Kind: domain.FixReduceSize, Detail: "reduce"}},
			{Name: domain.CriterionCorrectness, Passed: true, Message: "ok"},
			{Name: domain.CriterionSlippage, Passed: false, Message: "slippage too high",
				Fix: &domain.SuggestedFix{Kind: domain.FixReduceSize, Detail: "reduce"}},
		},
	}

	reasons := result.FailureReasons()
	if len(reasons) != 2 || reasons[0] != "value too high" || reasons[1] != "slippage too high" {
		t.Errorf("FailureReasons = %v", reasons)
	}

	fixes := result.SuggestedFixes()
	if len(fixes) != 2 {
		t.Errorf("SuggestedFixes returned %d fixes, want 2", len(fixes))
	}
}
