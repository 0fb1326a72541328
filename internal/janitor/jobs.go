package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/javoxirone/bilagon-ai-bot/internal/store"
)

// DefaultPruneSchedule runs the history prune nightly at 03:00.
const DefaultPruneSchedule = "0 3 * * *"

// DefaultRetention is how long idle conversations are kept.
const DefaultRetention = 30 * 24 * time.Hour

// PruneJob deletes conversation history for chats idle longer than the
// retention window.
type PruneJob struct {
	Turns     store.ConversationStore
	Retention time.Duration
	Cron      string
	Logger    *slog.Logger
}

func (j *PruneJob) Name() string { return "prune_idle_conversations" }

func (j *PruneJob) Schedule() string {
	if j.Cron != "" {
		return j.Cron
	}
	return DefaultPruneSchedule
}

func (j *PruneJob) Run(ctx context.Context) error {
	keep := j.Retention
	if keep <= 0 {
		keep = DefaultRetention
	}
	deleted, err := j.Turns.PruneIdle(ctx, keep)
	if err != nil {
		return fmt.Errorf("prune idle conversations: %w", err)
	}
	if j.Logger != nil && deleted > 0 {
		j.Logger.Info("janitor: pruned idle conversations", "turns_deleted", deleted, "retention", keep)
	}
	return nil
}

var _ Job = (*PruneJob)(nil)
