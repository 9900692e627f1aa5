package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agrisage/farm-auth/internal/middleware"
	"github.com/agrisage/farm-auth/internal/model"
	"github.com/agrisage/farm-auth/internal/queue"
	"github.com/agrisage/farm-auth/internal/repository"
	queue_publisher "github.com/agrisage/farm-auth/internal/service"
	"github.com/agrisage/farm-auth/internal/utils"
)

// ActivityHandler persists activity batches synced from the client and
// keeps the user's points in step with them.
type ActivityHandler struct {
	Users      *repository.UserRepo
	Activities *repository.ActivityRepo
}

func NewActivityHandler(u *repository.UserRepo, a *repository.ActivityRepo) *ActivityHandler {
	return &ActivityHandler{Users: u, Activities: a}
}

type activityItem struct {
	Type    string          `json:"type"`
	Points  int64           `json:"points"`
	Payload json.RawMessage `json:"payload"`
}

type syncReq struct {
	Activities []activityItem `json:"activities"`
}

// Sync stores a batch of client activities, credits the earned points to the
// user and publishes an activity.recorded event for downstream consumers.
// Publishing is best-effort; a broker outage never fails the sync.
func (h *ActivityHandler) Sync(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(string)

	var req syncReq
	if err := c.Bind(&req); err != nil || len(req.Activities) == 0 {
		return fail(c, http.StatusBadRequest, "activities required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		batch       []model.Activity
		totalPoints int64
		types       []string
	)
	now := time.Now().UTC()
	for _, item := range req.Activities {
		kind := strings.TrimSpace(item.Type)
		if kind == "" {
			return fail(c, http.StatusBadRequest, "activity type required")
		}
		id, err := utils.NewID(16)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "sync failed")
		}
		payload := "{}"
		if len(item.Payload) > 0 {
			payload = string(item.Payload)
		}
		batch = append(batch, model.Activity{
			ID:        id,
			UserID:    uid,
			Type:      kind,
			Points:    item.Points,
			Payload:   payload,
			CreatedAt: now,
		})
		totalPoints += item.Points
		types = append(types, kind)
	}

	if err := h.Activities.InsertBatch(ctx, batch); err != nil {
		log.Printf("activity: insert batch failed: %v", err)
		return fail(c, http.StatusInternalServerError, "sync failed")
	}
	points, err := h.Users.AddPoints(ctx, uid, totalPoints)
	if err != nil {
		log.Printf("activity: add points failed: %v", err)
		return fail(c, http.StatusInternalServerError, "sync failed")
	}

	_ = queue_publisher.PublishActivityRecorded(ctx, queue.ActivityRecordedEvent{
		UserID:     uid,
		Count:      len(batch),
		Points:     totalPoints,
		Types:      types,
		RecordedAt: now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"synced":  len(batch),
		"points":  points,
	})
}

// List returns the caller's recent activities, newest first.  The optional
// ?limit query parameter is clamped by the repository.
func (h *ActivityHandler) List(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(string)

	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acts, err := h.Activities.ListByUser(ctx, uid, limit)
	if err != nil {
		log.Printf("activity: list failed: %v", err)
		return fail(c, http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "activities": acts})
}
