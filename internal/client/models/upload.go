package models

import (
	"time"
)

// RunState is the phase of an upload run.
type RunState string

const (
	RunStatePreparing  RunState = "preparing"
	RunStateValidating RunState = "validating"
	RunStateUploading  RunState = "uploading"
	RunStateProcessing RunState = "processing"
	RunStateCompleted  RunState = "completed"
	RunStateFailed     RunState = "failed"
)

func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// Progress is emitted while a file is being sent.
type Progress struct {
	Index    int
	Percent  float64
	FileName string
	// Overall is the run-wide completion in [0,100].
	Overall float64
}

// UploadRun tracks one drain of the stage. It lives in memory only.
type UploadRun struct {
	State          RunState
	Total          int
	CurrentIndex   int
	CurrentPercent float64
	Completed      int
	StartedAt      time.Time
}

// Reset clears the per-file counters at the start of the upload phase.
func (r *UploadRun) Reset(total int) {
	r.Total = total
	r.CurrentIndex = 0
	r.CurrentPercent = 0
	r.Completed = 0
}

// Track records a progress report for file idx. Completed only grows, and only
// once a file reports 100%.
func (r *UploadRun) Track(idx int, pct float64) {
	r.CurrentIndex = idx
	r.CurrentPercent = pct
	if pct >= 100 && idx+1 > r.Completed {
		r.Completed = idx + 1
	}
}

// Overall returns (completed*100 + current) / (total*100) * 100 clamped to [0,100].
func (r *UploadRun) Overall() float64 {
	if r.Total <= 0 {
		return 0
	}
	cur := r.CurrentPercent
	if r.CurrentIndex < r.Completed {
		cur = 0
	}
	v := (float64(r.Completed)*100 + cur) / (float64(r.Total) * 100) * 100
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// UploadSummary describes a fully successful run.
type UploadSummary struct {
	UploadID      string
	TransactionID string
	Documents     []*Document
	TotalFiles    int
	CompletedAt   time.Time
}

// UploadResult is the terminal outcome of a run: State is RunStateCompleted
// with a Summary, or RunStateFailed with Err.
type UploadResult struct {
	State   RunState
	Summary *UploadSummary
	Err     error
}

func (r UploadResult) Succeeded() bool {
	return r.State == RunStateCompleted && r.Err == nil
}
