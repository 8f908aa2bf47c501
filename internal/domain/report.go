package domain

import "time"

// Stage names the pipeline phases in execution order.
type Stage string

const (
	StageCollect  Stage = "collect"
	StageProcess  Stage = "process"
	StageInsights Stage = "insights"
	StageGenerate Stage = "generate"
)

// Stages lists all phases in execution order.
func Stages() []Stage {
	return []Stage{StageCollect, StageProcess, StageInsights, StageGenerate}
}

// StageStatus is the state-machine status of one stage within a run.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusRunning StageStatus = "running"
	StatusDone    StageStatus = "done"
	StatusPartial StageStatus = "partial"
	StatusFailed  StageStatus = "failed"
)

// UnitFailure records one contained failure: a source, a record, or a topic
// cluster that did not make it through a stage.
type UnitFailure struct {
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// StageReport summarizes successes, skips, and contained failures of a stage.
type StageReport struct {
	Stage        Stage         `json:"stage"`
	Status       StageStatus   `json:"status"`
	Succeeded    int           `json:"succeeded"`
	Skipped      int           `json:"skipped"`
	Failures     []UnitFailure `json:"failures,omitempty"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
}

// NewStageReport starts a report in the running state.
func NewStageReport(stage Stage) *StageReport {
	return &StageReport{Stage: stage, Status: StatusRunning}
}

// Fail appends a contained unit failure.
func (r *StageReport) Fail(unit, reason string) {
	r.Failures = append(r.Failures, UnitFailure{Unit: unit, Reason: reason})
}

// RunReport aggregates the stage reports of a single pipeline invocation.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stages     []*StageReport `json:"stages"`
}
