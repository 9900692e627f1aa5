package handler_test

import (
	"net/http"
	"testing"
)

// Syncing a batch stores the activities and credits the points, visible both
// in the sync response and on the profile.
func TestActivitySyncCreditsPoints(t *testing.T) {
	s := newTestServer(t, nil)
	body := s.register(t, "Amit", "amit@x.com", "secret123")
	accessToken, _ := body["accessToken"].(string)

	rec, body := s.do(t, http.MethodPost, "/api/activity/sync", accessToken, map[string]any{
		"activities": []map[string]any{
			{"type": "quiz", "points": 20, "payload": map[string]any{"score": 4}},
			{"type": "farm_action", "points": 15},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: status = %d, body %v", rec.Code, body)
	}
	if body["synced"] != float64(2) {
		t.Errorf("synced = %v, want 2", body["synced"])
	}
	if body["points"] != float64(35) {
		t.Errorf("points = %v, want 35", body["points"])
	}

	// A second batch accumulates on top of the first.
	rec, body = s.do(t, http.MethodPost, "/api/activity/sync", accessToken, map[string]any{
		"activities": []map[string]any{{"type": "diagnosis", "points": 5}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second sync: status = %d, body %v", rec.Code, body)
	}
	if body["points"] != float64(40) {
		t.Errorf("points = %v, want 40", body["points"])
	}

	rec, body = s.do(t, http.MethodGet, "/api/auth/me", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/me: status = %d", rec.Code)
	}
	user, _ := body["user"].(map[string]any)
	if user["points"] != float64(40) {
		t.Errorf("profile points = %v, want 40", user["points"])
	}
}

func TestActivitySyncValidation(t *testing.T) {
	s := newTestServer(t, nil)
	body := s.register(t, "Amit", "amit@x.com", "secret123")
	accessToken, _ := body["accessToken"].(string)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no batch", map[string]any{}},
		{"empty batch", map[string]any{"activities": []map[string]any{}}},
		{"blank type", map[string]any{"activities": []map[string]any{{"type": "  ", "points": 5}}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec, _ := s.do(t, http.MethodPost, "/api/activity/sync", accessToken, test.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	rec, _ := s.do(t, http.MethodPost, "/api/activity/sync", "", map[string]any{
		"activities": []map[string]any{{"type": "quiz", "points": 5}},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated sync: status = %d, want 401", rec.Code)
	}
}

// Listing is scoped to the caller and ordered newest first.
func TestActivityList(t *testing.T) {
	s := newTestServer(t, nil)
	body := s.register(t, "Amit", "amit@x.com", "secret123")
	amit, _ := body["accessToken"].(string)
	body = s.register(t, "Asha", "asha@x.com", "secret123")
	asha, _ := body["accessToken"].(string)

	rec, _ := s.do(t, http.MethodPost, "/api/activity/sync", amit, map[string]any{
		"activities": []map[string]any{
			{"type": "quiz", "points": 10},
			{"type": "farm_action", "points": 5},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: status = %d", rec.Code)
	}

	rec, body = s.do(t, http.MethodGet, "/api/activity", amit, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d, body %v", rec.Code, body)
	}
	acts, _ := body["activities"].([]any)
	if len(acts) != 2 {
		t.Fatalf("len = %d, want 2", len(acts))
	}

	rec, body = s.do(t, http.MethodGet, "/api/activity", asha, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if acts, _ := body["activities"].([]any); len(acts) != 0 {
		t.Errorf("asha sees %d foreign activities", len(acts))
	}

	rec, body = s.do(t, http.MethodGet, "/api/activity?limit=1", amit, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("limited list: status = %d", rec.Code)
	}
	if acts, _ := body["activities"].([]any); len(acts) != 1 {
		t.Errorf("limited len = %d, want 1", len(acts))
	}
}
