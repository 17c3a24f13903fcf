package inmem

import (
	"context"
	"testing"

	"github.com/pensio/consultant-bot/internal/dialog"
)

func TestSessionLifecycle(t *testing.T) {
	driver, err := New()
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	ctx := context.Background()

	if session, err := driver.Get(ctx, "42"); err != nil || session != nil {
		t.Fatalf("expected no session initially, got session=%+v err=%v", session, err)
	}

	session := &dialog.Session{
		UserID:  "42",
		State:   "collect_personal_data",
		Draft:   dialog.NewDraft("old_age", "Old-age insurance pension"),
		Updated: 100,
	}
	if err := driver.Put(ctx, session); err != nil {
		t.Fatalf("put session: %v", err)
	}

	loaded, err := driver.Get(ctx, "42")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded == nil || loaded.State != "collect_personal_data" {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	// Replacing a session keeps a single entry per user
	if err := driver.Put(ctx, &dialog.Session{UserID: "42", State: "confirm", Updated: 200}); err != nil {
		t.Fatalf("replace session: %v", err)
	}
	loaded, err = driver.Get(ctx, "42")
	if err != nil || loaded == nil {
		t.Fatalf("get replaced session: session=%+v err=%v", loaded, err)
	}
	if loaded.State != "confirm" {
		t.Fatalf("expected the replaced session, got state %q", loaded.State)
	}

	if err := driver.Delete(ctx, "42"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if session, err := driver.Get(ctx, "42"); err != nil || session != nil {
		t.Fatalf("expected the session to be gone, got session=%+v err=%v", session, err)
	}
}

func TestDeleteIdle(t *testing.T) {
	driver, err := New()
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	ctx := context.Background()

	sessions := []*dialog.Session{
		{UserID: "1", State: "a", Updated: 100},
		{UserID: "2", State: "b", Updated: 200},
		{UserID: "3", State: "c", Updated: 300},
	}
	for _, session := range sessions {
		if err := driver.Put(ctx, session); err != nil {
			t.Fatalf("put session %s: %v", session.UserID, err)
		}
	}

	deleted, err := driver.DeleteIdle(ctx, 250)
	if err != nil {
		t.Fatalf("delete idle sessions: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 idle sessions to be deleted, got %d", deleted)
	}

	if session, _ := driver.Get(ctx, "3"); session == nil {
		t.Fatal("the active session must survive the cleanup")
	}
	if session, _ := driver.Get(ctx, "1"); session != nil {
		t.Fatal("the idle session must be gone")
	}
}
