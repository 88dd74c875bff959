package entity

import "github.com/google/uuid"

// VideoJobMessage is published to the job queue when jobs run on separate workers.
type VideoJobMessage struct {
	JobID          uuid.UUID `json:"job_id"`
	Mode           Mode      `json:"mode"`
	Color          string    `json:"color"`
	BlurStrength   int       `json:"blur_strength"`
	InputPath      string    `json:"input_path"`
	OutputPath     string    `json:"output_path"`
	BackgroundPath string    `json:"background_path,omitempty"`
	NotifyEmail    string    `json:"notify_email,omitempty"`
}

// VideoStatusMessage is the outbound event published when a job reaches a terminal state.
type VideoStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	Status          JobStatus `json:"status"`
	OutputPath      string    `json:"output_path,omitempty"`
	ProcessedFrames int       `json:"processed_frames"`
	SkippedFrames   int       `json:"skipped_frames"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

func NewVideoJobMessage(job *Job) VideoJobMessage {
	return VideoJobMessage{
		JobID:          job.ID,
		Mode:           job.Mode,
		Color:          job.Color,
		BlurStrength:   job.BlurStrength,
		InputPath:      job.InputPath,
		OutputPath:     job.OutputPath,
		BackgroundPath: job.BackgroundPath,
		NotifyEmail:    job.NotifyEmail,
	}
}

// Job rebuilds a job record from a queue message, used when the worker has no repository row.
func (m VideoJobMessage) Job() *Job {
	job := NewJob(m.Mode, m.Color, m.BlurStrength, m.InputPath, m.OutputPath, m.BackgroundPath)
	job.ID = m.JobID
	job.NotifyEmail = m.NotifyEmail
	return job
}

func NewVideoStatusMessage(job *Job) VideoStatusMessage {
	return VideoStatusMessage{
		JobID:           job.ID,
		Status:          job.Status,
		OutputPath:      job.OutputPath,
		ProcessedFrames: job.ProcessedFrames,
		SkippedFrames:   job.SkippedFrames,
		ErrorMessage:    job.ErrorMessage,
	}
}
