package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.CreateSession(ctx, "s1", "signup"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.SetSessionStatus(ctx, "s1", SessionCompleted); err != nil {
		t.Fatalf("SetSessionStatus: %v", err)
	}
	sessions, err := store.Sessions(ctx, SessionCompleted)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" || sessions[0].Status != SessionCompleted {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	active, err := store.Sessions(ctx, SessionActive)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("status filter not applied, got %+v", active)
	}
}

func TestHistoryOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.CreateSession(ctx, "s1", "signup"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	turns := []struct {
		role, content string
		turn          int
	}{
		{RoleAssistant, "What is your name?", 0},
		{RoleUser, "Ada", 1},
		{RoleAssistant, "Got it, Ada. What is your email?", 1},
	}
	for _, m := range turns {
		if err := store.AppendMessage(ctx, "s1", m.role, m.content, m.turn); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, m := range turns {
		if history[i].Content != m.content || history[i].Role != m.role {
			t.Fatalf("message %d out of order: %+v", i, history[i])
		}
	}
	if other, _ := store.History(ctx, "s2"); len(other) != 0 {
		t.Fatalf("history must be scoped by session")
	}
}

func TestCompletions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	records := []*CompletionRecord{
		{SessionID: "s1", AgentID: "signup", Fields: `{"name":"Ada"}`, Action: "log"},
		{SessionID: "s2", AgentID: "signup", Fields: `{"name":"Grace"}`, Action: "log"},
		{SessionID: "s3", AgentID: "feedback", Fields: `{"rating":"9"}`, Action: "log"},
	}
	for _, r := range records {
		if err := store.RecordCompletion(ctx, r); err != nil {
			t.Fatalf("RecordCompletion: %v", err)
		}
	}
	completions, err := store.Completions(ctx, "signup")
	if err != nil {
		t.Fatalf("Completions: %v", err)
	}
	if len(completions) != 2 {
		t.Fatalf("expected 2 completions for signup, got %d", len(completions))
	}
	if completions[0].SessionID != "s2" {
		t.Fatalf("completions should list newest first, got %+v", completions)
	}
}
