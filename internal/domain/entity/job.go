package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusCreated    JobStatus = "created"
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

var (
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrJobNotFound       = errors.New("job not found")
)

// Job is a whole-video matting request. Done and Failed are terminal.
type Job struct {
	ID              uuid.UUID
	Mode            Mode
	Color           string
	BlurStrength    int
	InputPath       string
	OutputPath      string
	BackgroundPath  string
	NotifyEmail     string
	Status          JobStatus
	TotalFrames     int
	ProcessedFrames int
	SkippedFrames   int
	FPS             float64
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewJob(mode Mode, color string, blurStrength int, inputPath, outputPath, backgroundPath string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:             uuid.New(),
		Mode:           mode,
		Color:          color,
		BlurStrength:   blurStrength,
		InputPath:      inputPath,
		OutputPath:     outputPath,
		BackgroundPath: backgroundPath,
		Status:         JobStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

func (j *Job) MarkStarting() error {
	if j.Status != JobStatusCreated {
		return j.transitionErr(JobStatusStarting)
	}
	j.Status = JobStatusStarting
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (j *Job) MarkProcessing(totalFrames int, fps float64) error {
	if j.Status != JobStatusStarting && j.Status != JobStatusCreated {
		return j.transitionErr(JobStatusProcessing)
	}
	j.Status = JobStatusProcessing
	j.TotalFrames = totalFrames
	j.FPS = fps
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (j *Job) MarkDone(processed, skipped int) error {
	if j.Status != JobStatusProcessing {
		return j.transitionErr(JobStatusDone)
	}
	now := time.Now().UTC()
	j.Status = JobStatusDone
	j.ProcessedFrames = processed
	j.SkippedFrames = skipped
	j.UpdatedAt = now
	j.CompletedAt = &now
	return nil
}

// MarkFailed is accepted from any non-terminal state.
func (j *Job) MarkFailed(errMsg string) error {
	if j.IsTerminal() {
		return j.transitionErr(JobStatusFailed)
	}
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = now
	j.CompletedAt = &now
	return nil
}

func (j *Job) transitionErr(to JobStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
}
