package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/document"
	"github.com/docuchat/docuchat/internal/log"
	"github.com/docuchat/docuchat/internal/testutil"
	"github.com/docuchat/docuchat/internal/vecstore"
)

func TestStoreIntegration(t *testing.T) {
	testDB := testutil.SetupTestDB(t)
	ctx := context.Background()

	store := document.NewStore(testDB.Pool, log.NewNop())

	t.Run("create and get", func(t *testing.T) {
		doc, err := store.Create(ctx, "alice", "t1", vecstore.Key("alice", "t1"), "report.pdf")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if doc.ID == uuid.Nil {
			t.Error("Create returned zero id")
		}
		if doc.Status != document.StatusUploaded {
			t.Errorf("status = %s, want uploaded", doc.Status)
		}

		got, err := store.Get(ctx, "alice", doc.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.OriginalFilename != "report.pdf" || got.ThreadID != "t1" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("get is owner scoped", func(t *testing.T) {
		doc, err := store.Create(ctx, "bob", "t1", vecstore.Key("bob", "t1"), "private.txt")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		_, err = store.Get(ctx, "mallory", doc.ID)
		if !errors.Is(err, document.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound for foreign owner", err)
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, "alice", uuid.New())
		if !errors.Is(err, document.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("list by thread", func(t *testing.T) {
		for _, name := range []string{"one.txt", "two.txt"} {
			if _, err := store.Create(ctx, "carol", "work", vecstore.Key("carol", "work"), name); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		if _, err := store.Create(ctx, "carol", "other", vecstore.Key("carol", "other"), "three.txt"); err != nil {
			t.Fatalf("Create: %v", err)
		}

		docs, err := store.ListByThread(ctx, "carol", "work")
		if err != nil {
			t.Fatalf("ListByThread: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("got %d documents, want 2", len(docs))
		}
		for _, d := range docs {
			if d.ThreadID != "work" {
				t.Errorf("document %s from thread %q leaked into listing", d.ID, d.ThreadID)
			}
		}
	})

	t.Run("lifecycle transitions", func(t *testing.T) {
		doc, err := store.Create(ctx, "dave", "t1", vecstore.Key("dave", "t1"), "steps.md")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		if err := store.MarkProcessing(ctx, doc.ID); err != nil {
			t.Fatalf("MarkProcessing: %v", err)
		}
		// Second transition out of uploaded must not fire.
		if err := store.MarkProcessing(ctx, doc.ID); !errors.Is(err, document.ErrNotFound) {
			t.Errorf("second MarkProcessing = %v, want ErrNotFound", err)
		}

		if err := store.MarkFailed(ctx, doc.ID, "embedding quota exhausted"); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}

		got, err := store.Get(ctx, "dave", doc.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != document.StatusFailed {
			t.Errorf("status = %s, want failed", got.Status)
		}
		if got.ErrorReason != "embedding quota exhausted" {
			t.Errorf("error_reason = %q", got.ErrorReason)
		}
	})

	t.Run("delete", func(t *testing.T) {
		doc, err := store.Create(ctx, "erin", "t1", vecstore.Key("erin", "t1"), "old.csv")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		if err := store.Delete(ctx, "mallory", doc.ID); !errors.Is(err, document.ErrNotFound) {
			t.Errorf("foreign-owner delete = %v, want ErrNotFound", err)
		}
		if err := store.Delete(ctx, "erin", doc.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := store.Delete(ctx, "erin", doc.ID); !errors.Is(err, document.ErrNotFound) {
			t.Errorf("second delete = %v, want ErrNotFound", err)
		}
	})

	t.Run("count ready", func(t *testing.T) {
		key := vecstore.Key("frank", "t1")

		count, err := store.CountReady(ctx, key)
		if err != nil {
			t.Fatalf("CountReady: %v", err)
		}
		if count != 0 {
			t.Errorf("empty collection count = %d", count)
		}

		doc, err := store.Create(ctx, "frank", "t1", key, "notes.txt")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		// Still uploaded, so not counted.
		count, err = store.CountReady(ctx, key)
		if err != nil {
			t.Fatalf("CountReady: %v", err)
		}
		if count != 0 {
			t.Errorf("uploaded document counted as ready: %d", count)
		}

		if err := store.MarkProcessing(ctx, doc.ID); err != nil {
			t.Fatalf("MarkProcessing: %v", err)
		}
		if _, err := testDB.Pool.Exec(ctx,
			`UPDATE documents SET status = 'ready', chunk_count = 1 WHERE id = $1`, doc.ID); err != nil {
			t.Fatalf("forcing ready: %v", err)
		}

		count, err = store.CountReady(ctx, key)
		if err != nil {
			t.Fatalf("CountReady: %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})
}
