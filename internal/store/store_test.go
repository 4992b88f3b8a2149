package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "posts.db"), time.UTC)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_EnqueueListPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	when := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	id, err := s.Enqueue(ctx, when, "первый пост", true)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if id == 0 {
		t.Error("Enqueue() should return non-zero id")
	}

	if _, err := s.Enqueue(ctx, when.Add(time.Hour), "второй пост", false); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListPending() len = %d, want 2", len(pending))
	}
	if pending[0].Text != "первый пост" {
		t.Errorf("ListPending() order wrong: first = %q", pending[0].Text)
	}
	if !pending[0].ScheduledTime.Equal(when) {
		t.Errorf("ListPending() ScheduledTime = %v, want %v", pending[0].ScheduledTime, when)
	}
	if !pending[0].IsAutoGenerated {
		t.Error("ListPending() first post should be auto generated")
	}
}

func TestStore_MarkSentIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, time.Now(), "пост", false)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := s.MarkSent(ctx, id); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}
	// Повторный вызов не должен возвращать ошибку и не должен менять состояние.
	if err := s.MarkSent(ctx, id); err != nil {
		t.Fatalf("second MarkSent() error = %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsSent {
		t.Error("Get() IsSent = false after MarkSent")
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("ListPending() len = %d, want 0", len(pending))
	}
}

func TestStore_CacheTakeUnused(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	t.Run("empty cache", func(t *testing.T) {
		_, err := s.CacheTakeUnused(ctx)
		if !errors.Is(err, ErrNoCachedPost) {
			t.Fatalf("CacheTakeUnused() error = %v, want ErrNoCachedPost", err)
		}
	})

	t.Run("single consumer exclusivity", func(t *testing.T) {
		firstID, err := s.CacheAdd(ctx, now, "кэшированный A")
		if err != nil {
			t.Fatalf("CacheAdd() error = %v", err)
		}
		secondID, err := s.CacheAdd(ctx, now, "кэшированный B")
		if err != nil {
			t.Fatalf("CacheAdd() error = %v", err)
		}

		got1, err := s.CacheTakeUnused(ctx)
		if err != nil {
			t.Fatalf("CacheTakeUnused() error = %v", err)
		}
		got2, err := s.CacheTakeUnused(ctx)
		if err != nil {
			t.Fatalf("second CacheTakeUnused() error = %v", err)
		}

		if got1.ID == got2.ID {
			t.Errorf("CacheTakeUnused() returned the same id %d twice", got1.ID)
		}
		if got1.ID != firstID || got2.ID != secondID {
			t.Errorf("CacheTakeUnused() order = %d,%d, want %d,%d", got1.ID, got2.ID, firstID, secondID)
		}
		if !got1.IsUsed || !got2.IsUsed {
			t.Error("CacheTakeUnused() should mark posts used")
		}

		if _, err := s.CacheTakeUnused(ctx); !errors.Is(err, ErrNoCachedPost) {
			t.Fatalf("drained cache: error = %v, want ErrNoCachedPost", err)
		}
	})

	t.Run("count unused", func(t *testing.T) {
		if _, err := s.CacheAdd(ctx, now, "кэшированный C"); err != nil {
			t.Fatalf("CacheAdd() error = %v", err)
		}
		n, err := s.CacheCountUnused(ctx)
		if err != nil {
			t.Fatalf("CacheCountUnused() error = %v", err)
		}
		if n != 1 {
			t.Errorf("CacheCountUnused() = %d, want 1", n)
		}
	})
}

func TestStore_PurgeSentOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	oldID, err := s.Enqueue(ctx, now.AddDate(0, 0, -40), "старый отправленный", true)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := s.MarkSent(ctx, oldID); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}

	// Старый, но не отправленный пост удаляться не должен.
	if _, err := s.Enqueue(ctx, now.AddDate(0, 0, -40), "старый неотправленный", true); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	freshID, err := s.Enqueue(ctx, now.AddDate(0, 0, -5), "свежий отправленный", true)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := s.MarkSent(ctx, freshID); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}

	purged, err := s.PurgeSentOlderThan(ctx, now, 30)
	if err != nil {
		t.Fatalf("PurgeSentOlderThan() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeSentOlderThan() = %d, want 1", purged)
	}

	if _, err := s.Get(ctx, oldID); err == nil {
		t.Error("Get() old sent post should be gone")
	}
	if _, err := s.Get(ctx, freshID); err != nil {
		t.Errorf("Get() fresh sent post should survive, error = %v", err)
	}
}
