package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/agrisage/farm-auth/internal/database"
	"github.com/agrisage/farm-auth/internal/model"
)

func openTestDB(t *testing.T) *UserRepo {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db)
}

func testUser(id, email string) model.User {
	return model.User{ID: id, Email: email, PasswordHash: "x", Name: "Test"}
}

func TestUserCreateAndDefaults(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testUser("u1", "Amit@X.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Email is normalized on write and lookup.
	u, err := repo.GetByEmail(ctx, "AMIT@x.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Email != "amit@x.com" {
		t.Errorf("email = %q, want amit@x.com", u.Email)
	}
	if u.Role != model.RoleFarmer {
		t.Errorf("role = %q, want default Farmer", u.Role)
	}
	if u.Points != 0 || u.Level != 1 || u.Streak != 0 {
		t.Errorf("progress = points %d level %d streak %d, want 0/1/0", u.Points, u.Level, u.Streak)
	}
	if u.Badges == nil || len(u.Badges) != 0 {
		t.Errorf("badges = %v, want empty list", u.Badges)
	}
	if u.OnboardingComplete {
		t.Error("onboarding complete on a fresh account")
	}
	if u.CreatedAt.IsZero() {
		t.Error("created at not set")
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testUser("u1", "amit@x.com")); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := repo.Create(ctx, testUser("u2", "amit@x.com"))
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate Create: got %v, want ErrEmailExists", err)
	}
}

// Two concurrent registrations with the same email must result in exactly
// one success and one conflict.
func TestUserConcurrentRegistration(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results <- repo.Create(ctx, testUser(fmt.Sprintf("u-race-%d", n), "race@x.com"))
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrEmailExists):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != workers-1 {
		t.Fatalf("got %d successes, %d conflicts; want 1 and %d", ok, conflict, workers-1)
	}
}

func TestUserGetNotFound(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	if _, err := repo.GetByEmail(ctx, "nobody@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID: got %v, want ErrNotFound", err)
	}
}

func TestUpdateProfileAllowList(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	if err := repo.Create(ctx, testUser("u1", "amit@x.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Amit Kumar"
	soil := "loamy"
	crops := []string{"wheat", "rice"}
	onboarded := true
	u, err := repo.UpdateProfile(ctx, "u1", ProfileUpdate{
		Name:               &name,
		SoilType:           &soil,
		CropPreferences:    crops,
		OnboardingComplete: &onboarded,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Name != name || u.SoilType != soil || !u.OnboardingComplete {
		t.Errorf("update not applied: %+v", u)
	}
	if len(u.CropPreferences) != 2 || u.CropPreferences[0] != "wheat" {
		t.Errorf("crop preferences = %v, want %v", u.CropPreferences, crops)
	}
	// Fields outside the update stay put.
	if u.Email != "amit@x.com" || u.PasswordHash != "x" || u.ID != "u1" {
		t.Errorf("immutable fields changed: %+v", u)
	}

	// No allow-listed field present: no-op error.
	if _, err := repo.UpdateProfile(ctx, "u1", ProfileUpdate{}); !errors.Is(err, ErrNoFields) {
		t.Errorf("empty update: got %v, want ErrNoFields", err)
	}

	// Unknown user.
	if _, err := repo.UpdateProfile(ctx, "ghost", ProfileUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
}

func TestAddPoints(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	if err := repo.Create(ctx, testUser("u1", "amit@x.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	total, err := repo.AddPoints(ctx, "u1", 30)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
	total, err = repo.AddPoints(ctx, "u1", 12)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if total != 42 {
		t.Errorf("total = %d, want 42", total)
	}
	if _, err := repo.AddPoints(ctx, "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
}
