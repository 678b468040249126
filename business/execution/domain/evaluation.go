package domain

// LoopState is a state of the evaluation/optimization state machine.
type LoopState string

const (
	StateDrafted       LoopState = "DRAFTED"
	StateEvaluating    LoopState = "EVALUATING"
	StatePassed        LoopState = "PASSED"
	StateNeedsRevision LoopState = "NEEDS_REVISION"
	StateRevising      LoopState = "REVISING"
	StateFinalized     LoopState = "FINALIZED"
	StateRejected      LoopState = "REJECTED"
)

// Criterion names, in the fixed slot order used by the evaluator.
const (
	CriterionGasEfficiency = "gas-efficiency"
	CriterionSecurity      = "security"
	CriterionCorrectness   = "correctness"
	CriterionSlippage      = "slippage-bounds"
)

// NumCriteria is the fixed number of evaluation criteria.
const NumCriteria = 4

// FixKind is a machine-usable suggested adjustment.
type FixKind string

const (
	FixReduceSize    FixKind = "reduce_size"
	FixRaiseSlippage FixKind = "raise_slippage"
	FixReestimateGas FixKind = "reestimate_gas"
	FixCorrectTarget FixKind = "correct_target"
	FixSplitValue    FixKind = "split_value"
)

// SuggestedFix pairs a machine-usable adjustment with its explanation.
type SuggestedFix struct {
	Kind   FixKind
	Detail string
}

// CriterionScore is one criterion's verdict on a draft.
type CriterionScore struct {
	Name    string
	Passed  bool
	Message string
	Fix     *SuggestedFix // set only on failure
}

// EvaluationResult aggregates the four criterion scores for one draft
// revision. Deterministic for identical draft + snapshot inputs.
type EvaluationResult struct {
	Passed   bool
	Scores   [NumCriteria]CriterionScore
	Revision int
}

// FailureReasons returns the messages of failed criteria in slot order.
func (r EvaluationResult) FailureReasons() []string {
	var reasons []string
	for _, s := range r.Scores {
		if !s.Passed {
			reasons = append(reasons, s.Message)
		}
	}
	return reasons
}

// SuggestedFixes returns the fixes of failed criteria in slot order.
func (r EvaluationResult) SuggestedFixes() []SuggestedFix {
	var fixes []SuggestedFix
	for _, s := range r.Scores {
		if !s.Passed && s.Fix != nil {
			fixes = append(fixes, *s.Fix)
		}
	}
	return fixes
}

// Outcome is the terminal result of an optimization loop run.
type Outcome struct {
	State   LoopState // StateFinalized or StateRejected
	Draft   Draft     // final draft; for StateFinalized, ready for submission
	Reasons []string  // for StateRejected, last evaluation's failures verbatim
	Rounds  int       // evaluation rounds executed
}

// Finalized reports whether the loop ended in success.
func (o Outcome) Finalized() bool {
	return o.State == StateFinalized
}
