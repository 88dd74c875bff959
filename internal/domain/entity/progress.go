package entity

import "time"

const (
	StageInitializing = "initializing"
	StageStarting     = "starting"
	StageProcessing   = "processing"
	StageDone         = "done"
	StageFailed       = "failed"
	StageUnknown      = "unknown"
)

// Progress is the polled record of a video job.
type Progress struct {
	Progress  float64 `json:"progress"`
	Stage     string  `json:"stage"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

func NewProgress(progress float64, stage string) Progress {
	return Progress{
		Progress:  progress,
		Stage:     stage,
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	}
}

func InitializingProgress() Progress {
	return Progress{Progress: 0, Stage: StageInitializing}
}

func (p Progress) IsTerminal() bool {
	return p.Stage == StageDone || p.Stage == StageFailed
}
