// Package app wires configuration into the adapters and use cases shared by the
// web server and the queue worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/background"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/archive"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/config"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/email"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/ffmpeg"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/httpclient"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/memory"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	miniostorage "github.com/SatNaingTun/SntImageBGChanger/internal/infra/minio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/modnet"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/postgres"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/progressfile"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/rabbitmq"
	"github.com/SatNaingTun/SntImageBGChanger/internal/matting"
	"github.com/SatNaingTun/SntImageBGChanger/internal/progress"
	"github.com/SatNaingTun/SntImageBGChanger/internal/usecase"
	"github.com/SatNaingTun/SntImageBGChanger/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DispatchLocal = "local"
	DispatchQueue = "queue"

	BackendPostgres = "postgres"
	MatteConstant   = "constant"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	Files    *filestore.Store
	Pool     *worker.Pool
	Sessions *background.Sessions

	Images      *usecase.ProcessImageUseCase
	Frames      *usecase.ProcessFrameUseCase
	Videos      *usecase.ProcessVideoUseCase
	Backgrounds *usecase.BackgroundUseCase
	Recordings  *usecase.RecordingUseCase

	// AMQP and Topology are set when jobs or status events use RabbitMQ.
	AMQP     *amqp.Connection
	Topology rabbitmq.Topology

	Health []metrics.HealthFunc

	db            *pgxpool.Pool
	progressStore *postgres.ProgressStore
	publisher     *rabbitmq.Publisher
}

// Limits maps the configured retention counts onto storage categories.
func Limits(cfg *config.Config) filestore.Limits {
	return filestore.Limits{
		filestore.ImageUpload:     cfg.MaxImageFiles,
		filestore.ImageChanged:    cfg.MaxImageFiles,
		filestore.ImageBackground: cfg.MaxImageFiles,
		filestore.VideoUpload:     cfg.MaxVideoUploads,
		filestore.VideoFrames:     cfg.MaxFrameFiles,
		filestore.VideoChanged:    cfg.MaxVideoOutputs,
		filestore.VideoBackground: cfg.MaxImageFiles,
		filestore.VideoRecorded:   0,
		filestore.VideoSnapshots:  0,
		filestore.VideoThumbnails: 0,
		filestore.ProgressRecords: cfg.MaxProgressFiles,
	}
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.Config, a.Logger

	files, err := filestore.New(cfg.DataDir, Limits(cfg), log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	a.Files = files

	repo, store, err := a.persistence(ctx)
	if err != nil {
		return err
	}

	bin := ffmpeg.Binaries{FFmpeg: cfg.FFmpegPath, FFprobe: cfg.FFprobePath}
	decoder := ffmpeg.NewDecoder(bin, cfg.DefaultFPS, log)
	factory := background.NewFactory(decoder, log)
	pipeline := matting.NewPipeline(a.matteSource(), cfg.MatteInputSize)

	a.Pool = worker.NewPool(worker.Config{
		InteractiveWorkers: cfg.InteractiveWorkers,
		BatchWorkers:       cfg.BatchWorkers,
		QueueSize:          cfg.PoolQueueSize,
	}, log)
	a.Sessions = background.NewSessions(decoder, time.Duration(cfg.SessionIdleTimeoutMs)*time.Millisecond, log)

	var mirror port.ResultMirror
	if cfg.MinIOEnabled {
		storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:     cfg.MinIOEndpoint,
			AccessKey:    cfg.MinIOAccessKey,
			SecretKey:    cfg.MinIOSecretKey,
			UseSSL:       cfg.MinIOUseSSL,
			ResultBucket: cfg.MinIOResultBucket,
		})
		if err != nil {
			return err
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return err
		}
		mirror = storage
	}

	if cfg.JobDispatch == DispatchQueue || cfg.StatusEvents {
		if err := a.connectQueue(); err != nil {
			return err
		}
	}

	deps := usecase.VideoDeps{
		Repo:     repo,
		Files:    files,
		Pipeline: pipeline,
		Decoder:  decoder,
		Muxer:    ffmpeg.NewMuxer(bin, log),
		Factory:  factory,
		Tracker:  progress.NewTracker(store, log),
		Mirror:   mirror,
		Logger:   log,
	}
	if cfg.SMTPEnabled {
		deps.Notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	}
	if cfg.StatusEvents {
		deps.Publisher = rabbitmq.NewStatusPublisher(a.publisher)
	}

	a.Backgrounds = usecase.NewBackgroundUseCase(files, log)
	deps.Backgrounds = a.Backgrounds
	a.Images = usecase.NewProcessImageUseCase(pipeline, a.Pool, files, mirror, log)
	a.Frames = usecase.NewProcessFrameUseCase(pipeline, a.Pool, files, a.Backgrounds, a.Sessions, factory, log)
	a.Recordings = usecase.NewRecordingUseCase(files, ffmpeg.NewThumbnailer(bin), archive.NewZipCreator(), log)
	a.Videos = usecase.NewProcessVideoUseCase(deps)

	if cfg.JobDispatch == DispatchQueue {
		a.Videos.SetDispatcher(rabbitmq.NewJobDispatcher(a.publisher))
	} else {
		a.Videos.SetDispatcher(usecase.NewLocalDispatcher(a.Pool, a.Videos))
	}
	return nil
}

func (a *App) persistence(ctx context.Context) (port.JobRepository, port.ProgressStore, error) {
	cfg := a.Config
	if cfg.ProgressBackend != BackendPostgres {
		store, err := progressfile.New(a.Files.Dir(filestore.ProgressRecords))
		if err != nil {
			return nil, nil, fmt.Errorf("init progress store: %w", err)
		}
		return memory.NewJobRepository(), store, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	a.db = db
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		a.Logger.Warn("migration warning", zap.Error(err))
	}
	a.Health = append(a.Health, func(ctx context.Context) error { return db.Ping(ctx) })
	a.progressStore = postgres.NewProgressStore(db)
	return postgres.NewJobRepository(db), a.progressStore, nil
}

func (a *App) matteSource() port.MatteSource {
	cfg := a.Config
	if cfg.MatteBackend == MatteConstant {
		a.Logger.Warn("using constant matte source", zap.Float64("value", cfg.MatteConstant))
		return modnet.Constant{Value: float32(cfg.MatteConstant)}
	}
	timeout := time.Duration(cfg.MatteTimeoutMs) * time.Millisecond
	return modnet.NewClient(httpclient.NewHTTPClientWithTimeout(timeout), cfg.MatteEndpoint, timeout)
}

func (a *App) connectQueue() error {
	cfg := a.Config
	conn, err := rabbitmq.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	a.AMQP = conn
	a.Topology = rabbitmq.Topology{
		Exchange:    cfg.RabbitMQExchange,
		JobQueue:    cfg.RabbitMQJobQueue,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatus,
	}
	pub, err := rabbitmq.NewPublisher(conn, a.Topology)
	if err != nil {
		return fmt.Errorf("create rabbitmq publisher: %w", err)
	}
	a.publisher = pub
	a.Health = append(a.Health, func(context.Context) error {
		if conn.IsClosed() {
			return fmt.Errorf("rabbitmq connection closed")
		}
		return nil
	})
	return nil
}

// Publisher is the shared channel, used by the worker for its dead-letter queue.
func (a *App) Publisher() *rabbitmq.Publisher {
	return a.publisher
}

// Scheduler registers the periodic housekeeping jobs. The caller starts and
// stops it.
func (a *App) Scheduler() (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(a.Config.RetentionSweepSpec, a.Files.Sweep); err != nil {
		return nil, fmt.Errorf("schedule retention: %w", err)
	}
	if _, err := c.AddFunc("@every 1m", func() { a.Sessions.Sweep(time.Now()) }); err != nil {
		return nil, fmt.Errorf("schedule session expiry: %w", err)
	}
	if a.progressStore != nil {
		keep := a.Config.MaxProgressFiles
		_, err := c.AddFunc(a.Config.RetentionSweepSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if n, err := a.progressStore.Prune(ctx, keep); err != nil {
				a.Logger.Warn("progress prune failed", zap.Error(err))
			} else if n > 0 {
				metrics.RetentionDeletedTotal.WithLabelValues(string(filestore.ProgressRecords)).Add(float64(n))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("schedule progress prune: %w", err)
		}
	}
	return c, nil
}

// Close drains the worker pool and releases connections.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if a.Pool != nil {
		if err := a.Pool.Close(ctx); err != nil {
			a.Logger.Warn("worker pool did not drain", zap.Error(err))
		}
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.AMQP != nil {
		a.AMQP.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
