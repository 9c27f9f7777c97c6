package action

// KindBatch is the kind of BatchAction.
const KindBatch Kind = "batch"

// BatchAction carries an ordered list of sub-actions sent as one call.
type BatchAction struct {
	Actions []Action
}

// Kind implements Action.
func (BatchAction) Kind() Kind { return KindBatch }

// ResultOf binds BatchAction to *BatchResult.
func (BatchAction) ResultOf(*BatchResult) {}

// Outcome is the per-slot outcome of a batched sub-action: exactly one of
// Result and Err is meaningful.
type Outcome struct {
	Result Result
	Err    error
}

// Succeeded returns a successful outcome.
func Succeeded(r Result) Outcome { return Outcome{Result: r} }

// FailedWith returns a failed outcome.
func FailedWith(err error) Outcome { return Outcome{Err: err} }

// BatchResult holds one Outcome per sub-action, aligned by index.
type BatchResult struct {
	Outcomes []Outcome
}

// IsComplete implements Result. A batch result is always final.
func (*BatchResult) IsComplete() bool { return true }
