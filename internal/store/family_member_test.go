package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/homehub/internal/database"
	"github.com/dukerupert/homehub/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFamilyMemberCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewFamilyMemberStore(openTestDB(t))

	alice, err := s.Create(ctx, "Alice", "#FF0000", "🦊", 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if alice.Points != 5 {
		t.Errorf("points = %d, want 5", alice.Points)
	}
	if alice.SortOrder != 0 {
		t.Errorf("sort_order = %d, want 0", alice.SortOrder)
	}

	bob, err := s.Create(ctx, "Bob", "#00FF00", "🐻", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bob.SortOrder != 1 {
		t.Errorf("sort_order = %d, want 1", bob.SortOrder)
	}

	updated, err := s.Update(ctx, alice.ID, "Alicia", "#0000FF", "🦉")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Alicia" || updated.Color != "#0000FF" {
		t.Errorf("updated = %+v", updated)
	}

	if err := s.UpdateSortOrder(ctx, []int64{bob.ID, alice.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	members, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 2 || members[0].Name != "Bob" {
		t.Errorf("order after reorder = %+v", members)
	}
}

func TestFamilyMemberGetByIDNotFound(t *testing.T) {
	s := NewFamilyMemberStore(openTestDB(t))

	m, err := s.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil, got %+v", m)
	}
}

func TestFamilyMemberNameExists(t *testing.T) {
	ctx := context.Background()
	s := NewFamilyMemberStore(openTestDB(t))

	m, _ := s.Create(ctx, "Alice", "#FF0000", "🦊", 0)

	exists, err := s.NameExists(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !exists {
		t.Error("expected case-insensitive match")
	}

	exists, _ = s.NameExists(ctx, "Alice", m.ID)
	if exists {
		t.Error("own name should be excluded")
	}
}

func TestDeleteMemberCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	members := NewFamilyMemberStore(db)
	chores := NewChoreStore(db)
	events := NewEventStore(db)
	mappings := NewMappingStore(db)
	completions := NewCompletionStore(db)

	alice, _ := members.Create(ctx, "Alice", "#FF0000", "🦊", 0)
	bob, _ := members.Create(ctx, "Bob", "#00FF00", "🐻", 0)

	if _, err := chores.Create(ctx, "Dishes", 2, &alice.ID, ""); err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if _, err := chores.Create(ctx, "Laundry", 1, &bob.ID, ""); err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if _, err := events.Create(ctx, "Dentist", "2026-03-02", 9, 1, &alice.ID, ""); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := mappings.Set(ctx, model.MappingTaskList, "list-a", "1"); err != nil {
		t.Fatalf("set mapping: %v", err)
	}
	if _, err := completions.Record(ctx, PointEntry{
		MemberID: alice.ID, TaskTitle: "Dishes", Source: model.TaskSourceLocal, Kind: model.KindCompleted, Points: 2,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := members.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if m, _ := members.GetByID(ctx, alice.ID); m != nil {
		t.Error("member should be gone")
	}
	left, _ := chores.ListByAssignee(ctx, alice.ID)
	if len(left) != 0 {
		t.Errorf("chores left = %d, want 0", len(left))
	}
	bobs, _ := chores.ListByAssignee(ctx, bob.ID)
	if len(bobs) != 1 {
		t.Errorf("bob's chores = %d, want 1", len(bobs))
	}
	if n, _ := events.CountByMember(ctx, alice.ID); n != 0 {
		t.Errorf("events left = %d, want 0", n)
	}
	if _, ok, _ := mappings.Get(ctx, model.MappingTaskList, "list-a"); ok {
		t.Error("task list mapping should be removed")
	}

	// Audit rows outlive the member.
	history, err := completions.ListSince(ctx, alice.CreatedAt.AddDate(0, 0, -1), nil, 0)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(history) != 1 || history[0].MemberName != "Alice" {
		t.Errorf("history = %+v", history)
	}
}
