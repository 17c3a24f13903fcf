package dialog_test

import (
	"context"
	"testing"
	"time"

	"github.com/pensio/consultant-bot/internal/dialog"
	"github.com/pensio/consultant-bot/internal/dialog/storage/inmem"
)

func TestScheduleCleanupRemovesIdleSessions(t *testing.T) {
	storage, err := inmem.New()
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	ctx := context.Background()

	idle := &dialog.Session{
		UserID:  "1",
		State:   "confirm",
		Updated: time.Now().Add(-2 * time.Hour).Unix(),
	}
	active := &dialog.Session{
		UserID:  "2",
		State:   "collect_personal_data",
		Updated: time.Now().Unix(),
	}
	if err := storage.Put(ctx, idle); err != nil {
		t.Fatalf("put idle session: %v", err)
	}
	if err := storage.Put(ctx, active); err != nil {
		t.Fatalf("put active session: %v", err)
	}

	cleanup := dialog.ScheduleCleanup(storage, time.Hour, 5*time.Millisecond)
	defer cleanup.Stop(false)

	deadline := time.Now().Add(time.Second)
	for {
		session, err := storage.Get(ctx, "1")
		if err != nil {
			t.Fatalf("get idle session: %v", err)
		}
		if session == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("the idle session was never cleaned up")
		}
		time.Sleep(time.Millisecond)
	}

	if session, err := storage.Get(ctx, "2"); err != nil || session == nil {
		t.Fatalf("the active session must survive the cleanup, got session=%+v err=%v", session, err)
	}
}
