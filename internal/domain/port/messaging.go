package port

import (
	"context"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
)

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// JobDispatcher hands a created job to whatever runs it: an in-process pool or a queue.
type JobDispatcher interface {
	Dispatch(ctx context.Context, job *entity.Job) error
}
