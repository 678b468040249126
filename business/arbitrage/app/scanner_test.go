package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	executionDomain "github.com/dexter-bot/dexter/business/execution/domain"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/logger"
)

type fakeOppDrafter struct {
	draft     executionDomain.Draft
	err       error
	gotAmount *big.Int
}

func (f *fakeOppDrafter) DraftFromOpportunity(_ context.Context, _ *domain.Opportunity, amountIn *big.Int) (executionDomain.Draft, error) {
	f.gotAmount = new(big.Int).Set(amountIn)
	return f.draft, f.err
}

type fakeValidator struct {
	outcome executionDomain.Outcome
	err     error
	calls   int
}

func (f *fakeValidator) RunLoop(context.Context, executionDomain.Draft) (executionDomain.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type recordingReporter struct {
	validated []executionDomain.Outcome
}

func (r *recordingReporter) Start(context.Context) error                            { return nil }
func (r *recordingReporter) Report(*domain.Opportunity)                             {}
func (r *recordingReporter) UpdateQuotes(pricingDomain.Pair, []pricingDomain.Quote) {}
func (r *recordingReporter) UpdateConnectionStatus(string, bool)                    {}
func (r *recordingReporter) Stop() error                                            { return nil }
func (r *recordingReporter) ReportValidation(_ *domain.Opportunity, o executionDomain.Outcome) {
	r.validated = append(r.validated, o)
}

func testOpportunity(t *testing.T) *domain.Opportunity {
	t.Helper()
	buy := makeQuote(t, "venue_a", "3245.50")
	sell := makeQuote(t, "venue_b", "3262.75")
	opp := domain.NewOpportunity(buy, sell, decimal.NewFromInt(1), decimal.Zero)
	return &opp
}

func newValidationScanner(drafter *fakeOppDrafter, validator *fakeValidator, reporter *recordingReporter) *Scanner {
	return &Scanner{
		reporter:  reporter,
		drafter:   drafter,
		validator: validator,
		config:    ScannerConfig{AutoDraft: true},
		logger:    logger.New(io.Discard, logger.LevelError, "test", nil),
	}
}

func TestValidateOpportunity_ReportsFinalizedOutcome(t *testing.T) {
	drafter := &fakeOppDrafter{draft: executionDomain.Draft{GasLimit: 150000}}
	validator := &fakeValidator{outcome: executionDomain.Outcome{
		State:  executionDomain.StateFinalized,
		Rounds: 1,
	}}
	reporter := &recordingReporter{}

	s := newValidationScanner(drafter, validator, reporter)
	s.validateOpportunity(context.Background(), testOpportunity(t))

	// 1 ETH at 3245.50 costs 3245.50 USDC, in smallest units.
	want := big.NewInt(3_245_500_000)
	if drafter.gotAmount == nil || drafter.gotAmount.Cmp(want) != 0 {
		t.Errorf("draft amount = %v, want %s (quote spent at the buy price)", drafter.gotAmount, want)
	}
	if validator.calls != 1 {
		t.Fatalf("validator ran %d times, want 1", validator.calls)
	}
	if len(reporter.validated) != 1 {
		t.Fatalf("reported %d outcomes, want 1", len(reporter.validated))
	}
	if !reporter.validated[0].Finalized() {
		t.Error("reported outcome is not finalized")
	}
}

func TestValidateOpportunity_ReportsRejectedOutcome(t *testing.T) {
	drafter := &fakeOppDrafter{}
	validator := &fakeValidator{outcome: executionDomain.Outcome{
		State:   executionDomain.StateRejected,
		Rounds:  4,
		Reasons: []string{"expected slippage 5% exceeds the 2% bound"},
	}}
	reporter := &recordingReporter{}

	s := newValidationScanner(drafter, validator, reporter)
	s.validateOpportunity(context.Background(), testOpportunity(t))

	if len(reporter.validated) != 1 {
		t.Fatalf("reported %d outcomes, want 1", len(reporter.validated))
	}
	got := reporter.validated[0]
	if got.Finalized() {
		t.Error("rejected outcome reported as finalized")
	}
	if len(got.Reasons) != 1 {
		t.Errorf("reasons = %v, want the rejection reason", got.Reasons)
	}
}

func TestValidateOpportunity_DraftFailureIsContained(t *testing.T) {
	drafter := &fakeOppDrafter{err: errors.New("wallet not configured")}
	validator := &fakeValidator{}
	reporter := &recordingReporter{}

	s := newValidationScanner(drafter, validator, reporter)
	s.validateOpportunity(context.Background(), testOpportunity(t))

	if validator.calls != 0 {
		t.Error("validator ran despite a failed draft")
	}
	if len(reporter.validated) != 0 {
		t.Error("an outcome was reported despite a failed draft")
	}
}

func TestNewScanner_AutoDraftRequiresPipeline(t *testing.T) {
	s := NewScanner(nil, nil, nil, &recordingReporter{}, nil, nil,
		ScannerConfig{AutoDraft: true},
		logger.New(io.Discard, logger.LevelError, "test", nil))

	if s.config.AutoDraft {
		t.Error("AutoDraft stayed on without a drafter and validator")
	}
}
