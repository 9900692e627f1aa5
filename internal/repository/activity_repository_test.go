package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agrisage/farm-auth/internal/database"
	"github.com/agrisage/farm-auth/internal/model"
)

func openActivityRepo(t *testing.T) *ActivityRepo {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewActivityRepo(db)
}

func TestActivityBatchRoundTrip(t *testing.T) {
	repo := openActivityRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	var batch []model.Activity
	for i := 0; i < 3; i++ {
		batch = append(batch, model.Activity{
			ID:        fmt.Sprintf("a%d", i),
			UserID:    "u1",
			Type:      "quiz",
			Points:    int64(10 * (i + 1)),
			Payload:   `{"score":1}`,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	// Another user's activity must not leak into the listing.
	if err := repo.InsertBatch(ctx, []model.Activity{
		{ID: "other", UserID: "u2", Type: "diagnosis", CreatedAt: base},
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := repo.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].ID != "a2" || got[2].ID != "a0" {
		t.Errorf("order = %s,%s,%s; want a2,a1,a0", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Payload != `{"score":1}` || got[0].Points != 30 {
		t.Errorf("row = %+v", got[0])
	}
}

func TestActivityListLimit(t *testing.T) {
	repo := openActivityRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	var batch []model.Activity
	for i := 0; i < 5; i++ {
		batch = append(batch, model.Activity{
			ID:        fmt.Sprintf("a%d", i),
			UserID:    "u1",
			Type:      "farm_action",
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := repo.ListByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	// Empty batch is a no-op, not an error.
	if err := repo.InsertBatch(ctx, nil); err != nil {
		t.Errorf("empty InsertBatch: %v", err)
	}
}
