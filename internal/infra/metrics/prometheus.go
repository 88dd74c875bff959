package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesCompositedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matting_frames_composited_total",
		Help: "Total number of frames composited, by source",
	}, []string{"source"})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matting_frames_skipped_total",
		Help: "Video job frames dropped because inference or compositing failed",
	})

	VideoJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matting_video_jobs_total",
		Help: "Total number of video jobs finished, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matting_stage_duration_seconds",
		Help:    "Duration of processing stages",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 30, 120, 600},
	}, []string{"stage"})

	PoolQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "matting_pool_queue_depth",
		Help: "Tasks waiting for a worker, by class",
	}, []string{"class"})

	ActiveWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "matting_active_workers",
		Help: "Number of workers currently running a task, by class",
	}, []string{"class"})

	BackgroundFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matting_background_fallbacks_total",
		Help: "Background sources replaced by the solid fallback, by kind",
	}, []string{"kind"})

	RetentionDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matting_retention_deleted_total",
		Help: "Files removed by retention, by category",
	}, []string{"category"})
)
