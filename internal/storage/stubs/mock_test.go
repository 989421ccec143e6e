package stubs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"filebot/internal/models"
	"filebot/internal/storage"
)

func TestMockDB_NextSequenceIsMonotonic(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	const workers = 50
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := db.NextSequence(ctx, storage.FileSequence)
			if err != nil {
				t.Errorf("NextSequence failed: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("Duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != workers {
		t.Errorf("Expected %d distinct ids, got %d", workers, len(seen))
	}

	next, _ := db.NextSequence(ctx, storage.FileSequence)
	if next != workers+1 {
		t.Errorf("Expected next id %d, got %d", workers+1, next)
	}
}

func TestMockDB_Users(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if _, err := db.GetUser(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := db.UpsertUser(ctx, models.User{ID: 1, Username: "alice", FirstName: "Alice"}); err != nil {
		t.Fatalf("Failed to upsert user: %v", err)
	}
	if err := db.SetCaption(ctx, 1, "my caption"); err != nil {
		t.Fatalf("Failed to set caption: %v", err)
	}
	// Upsert must keep the caption
	if err := db.UpsertUser(ctx, models.User{ID: 1, Username: "alice2", FirstName: "Alice"}); err != nil {
		t.Fatalf("Failed to upsert user: %v", err)
	}

	u, err := db.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if u.Username != "alice2" || u.Caption != "my caption" {
		t.Errorf("Unexpected user %+v", u)
	}

	changed, _ := db.SetBanned(ctx, 1, true)
	if !changed {
		t.Error("Expected ban to change the user")
	}
	changed, _ = db.SetBanned(ctx, 1, true)
	if changed {
		t.Error("Expected second ban to be a no-op")
	}

	_ = db.UpsertUser(ctx, models.User{ID: 2})
	ids, _ := db.ListActiveUserIDs(ctx)
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("Expected only user 2 to be active, got %v", ids)
	}
}

func TestMockDB_ReserveRedemptionRespectsLimit(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	err := db.InsertCode(ctx, &models.RedeemCode{
		Code:  "AAAA-BBBB-CCCC",
		Prize: models.TextPrize{Text: "hello"},
		Limit: 3,
	})
	if err != nil {
		t.Fatalf("Failed to insert code: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			if _, err := db.ReserveRedemption(ctx, "AAAA-BBBB-CCCC", user); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != 3 {
		t.Errorf("Expected exactly 3 reservations, got %d", successes)
	}

	c, _ := db.GetCode(ctx, "AAAA-BBBB-CCCC")
	if c.Count != 3 || len(c.RedeemedBy) != 3 {
		t.Errorf("Expected count 3 with 3 redeemers, got %d/%d", c.Count, len(c.RedeemedBy))
	}
}

func TestMockDB_ReleaseRedemption(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	_ = db.InsertCode(ctx, &models.RedeemCode{Code: "X", Prize: models.TextPrize{Text: "t"}, Limit: 1})
	if _, err := db.ReserveRedemption(ctx, "X", 7); err != nil {
		t.Fatalf("Failed to reserve: %v", err)
	}
	if _, err := db.ReserveRedemption(ctx, "X", 8); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	if err := db.ReleaseRedemption(ctx, "X", 7); err != nil {
		t.Fatalf("Failed to release: %v", err)
	}
	if _, err := db.ReserveRedemption(ctx, "X", 8); err != nil {
		t.Fatalf("Expected reservation after release, got %v", err)
	}
}

func TestMockDB_PoolPopAndRestore(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	_ = db.InsertCode(ctx, &models.RedeemCode{Code: "POOL-AAAA-BBBB", Prize: models.PoolPrize{Items: []string{"a", "b"}}})

	item, err := db.PopPoolItem(ctx, "POOL-AAAA-BBBB")
	if err != nil || item != "a" {
		t.Fatalf("Expected a, got %q (%v)", item, err)
	}
	if err := db.RestorePoolItem(ctx, "POOL-AAAA-BBBB", item); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	var got []string
	for {
		item, err := db.PopPoolItem(ctx, "POOL-AAAA-BBBB")
		if errors.Is(err, storage.ErrEmpty) {
			break
		}
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		got = append(got, item)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}
}

func TestMockDB_Config(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	added, _ := db.AddAdmin(ctx, 10)
	if !added {
		t.Error("Expected admin to be added")
	}
	added, _ = db.AddAdmin(ctx, 10)
	if added {
		t.Error("Expected duplicate admin add to be a no-op")
	}

	_, _ = db.AddForceSubChannel(ctx, "@news")
	_ = db.SetAutoDelete(ctx, 30)

	cfg, err := db.GetConfig(ctx)
	if err != nil {
		t.Fatalf("Failed to get config: %v", err)
	}
	if len(cfg.AdminIDs) != 1 || cfg.AutoDeleteSeconds != 30 || len(cfg.ForceSubChannels) != 1 || !cfg.BotEnabled {
		t.Errorf("Unexpected config %+v", cfg)
	}

	removed, _ := db.RemoveForceSubChannel(ctx, "@missing")
	if removed {
		t.Error("Expected removal of unknown channel to report false")
	}
}
