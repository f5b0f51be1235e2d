package orderlog

import (
	"context"
	"log/slog"
)

// Repository persists activity entries. Append never updates a row.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, orderID string) ([]Entry, error)
}

// Recorder appends entries on behalf of engine components. A nil Recorder or
// one without a repository drops entries, and an append failure is logged,
// never returned: the trail must not fail the operation it describes.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record builds an entry from ctx and appends it.
func (r *Recorder) Record(ctx context.Context, orderID string, action Action, actor string, detail any) {
	if r == nil || r.repo == nil {
		return
	}
	entry := NewEntry(ctx, orderID, action, actor, detail)
	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "order activity append failed",
			"order_id", orderID, "action", string(action), "error", err)
	}
}
