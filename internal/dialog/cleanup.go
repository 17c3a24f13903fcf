package dialog

import (
	"context"
	"time"

	"github.com/pensio/consultant-bot/internal/task"
	"github.com/rs/zerolog/log"
)

// ScheduleCleanup starts a repeating task that removes sessions idle for
// longer than the given lifetime. The caller is responsible for stopping the
// returned task on shutdown.
func ScheduleCleanup(storage Storage, lifetime, interval time.Duration) *task.RepeatingTask {
	cleanup := task.NewRepeating(func() {
		before := time.Now().Add(-lifetime).Unix()
		deleted, err := storage.DeleteIdle(context.Background(), before)
		if err != nil {
			log.Error().Err(err).Msg("could not clean up idle conversation sessions")
			return
		}
		if deleted > 0 {
			log.Info().Int("amount", deleted).Msg("removed idle conversation sessions")
		}
	}, interval)
	cleanup.Start()
	return cleanup
}
