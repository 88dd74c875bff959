package port

import (
	"context"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
)

// ProgressStore persists progress records outside process memory. Write replaces
// the whole record. Read reports found=false for unknown ids.
type ProgressStore interface {
	Write(ctx context.Context, jobID string, p entity.Progress) error
	Read(ctx context.Context, jobID string) (p entity.Progress, found bool, err error)
}
