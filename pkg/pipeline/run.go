package pipeline

// State is a node in the per-run state machine.
type State string

const (
	StateReceived           State = "received"
	StateStored             State = "stored"
	StateTextExtracted      State = "text_extracted"
	StateNoTextFound        State = "no_text_found"
	StateLanguageDetected   State = "language_detected"
	StateTranslated         State = "translated"
	StateSkippedTranslation State = "skipped_translation"
	StateSummarized         State = "summarized"
	StateDelivered          State = "delivered"
	StateFailed             State = "failed"
)

// Stage names the pipeline stages for stage results and failure reporting.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageStore     Stage = "store"
	StageOCR       Stage = "ocr"
	StageDetect    Stage = "detect"
	StageTranslate Stage = "translate"
	StageSummarize Stage = "summarize"
	StageDeliver   Stage = "deliver"
	// StageTimeout marks runs that exhausted the total time budget.
	StageTimeout Stage = "timeout"
)

type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageSkipped StageStatus = "skipped"
	StageFailure StageStatus = "failed"
)

// StageResult records the outcome of one stage.
type StageResult struct {
	Stage  Stage
	Status StageStatus
	Output string
	Err    error
}

// Run tracks one pipeline execution. It is mutated only by the Orchestrator
// and discarded once the reply is out; nothing is persisted.
type Run struct {
	SourceObjectID string
	Stages         []StageResult
	FinalText      string
	State          State
	FailedStage    Stage
}

func newRun() *Run {
	return &Run{State: StateReceived}
}

func (r *Run) record(stage Stage, status StageStatus, output string, err error) {
	r.Stages = append(r.Stages, StageResult{Stage: stage, Status: status, Output: output, Err: err})
}

// StageResult returns the recorded result for stage, if any.
func (r *Run) StageResult(stage Stage) (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == stage {
			return sr, true
		}
	}
	return StageResult{}, false
}

// Outcome is a short label for metrics and logs: "delivered", or
// "failed_<stage>" for terminal failures.
func (r *Run) Outcome() string {
	if r.State == StateFailed {
		return "failed_" + string(r.FailedStage)
	}
	return string(r.State)
}
