package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/agrisage/farm-auth/internal/model"
)

// UserRepo persists user records.  Email uniqueness is enforced by the
// SQLite constraint and surfaced as ErrEmailExists.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, name, phone, role, points, level, streak,
	badges, location, soil_type, crop_preferences, sustainability_goals,
	irrigation_preference, language, avatar, onboarding_complete, created_at`

// Create inserts a new user.  The caller supplies the id and password hash;
// zero-valued profile fields fall back to the column defaults set here so
// every account starts with the same progress values.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleFarmer
	}
	if u.Level == 0 {
		u.Level = 1
	}
	if u.Language == "" {
		u.Language = "en"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, phone, role, points, level, streak,
			badges, location, soil_type, crop_preferences, sustainability_goals,
			irrigation_preference, language, avatar, onboarding_complete, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role, u.Points, u.Level, u.Streak,
		marshalList(u.Badges), u.Location, u.SoilType, marshalList(u.CropPreferences),
		marshalList(u.SustainabilityGoals), u.IrrigationPreference, u.Language, u.Avatar,
		boolToInt(u.OnboardingComplete), toMillis(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// ProfileUpdate carries the allow-listed mutable fields.  Nil pointers and
// nil slices mean "leave unchanged"; anything outside this struct simply has
// no way in.
type ProfileUpdate struct {
	Name                 *string  `json:"name"`
	Phone                *string  `json:"phone"`
	Role                 *string  `json:"role"`
	Points               *int64   `json:"points"`
	Location             *string  `json:"location"`
	SoilType             *string  `json:"soilType"`
	CropPreferences      []string `json:"cropPreferences"`
	SustainabilityGoals  []string `json:"sustainabilityGoals"`
	IrrigationPreference *string  `json:"irrigationPreference"`
	Language             *string  `json:"language"`
	OnboardingComplete   *bool    `json:"onboardingComplete"`
	Avatar               *string  `json:"avatar"`
}

// UpdateProfile applies the non-nil fields of upd to the user and returns the
// updated record.  ErrNoFields is returned when nothing updatable was
// supplied, ErrNotFound when the user does not exist.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (model.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Phone != nil {
		set("phone", *upd.Phone)
	}
	if upd.Role != nil {
		set("role", *upd.Role)
	}
	if upd.Points != nil {
		set("points", *upd.Points)
	}
	if upd.Location != nil {
		set("location", *upd.Location)
	}
	if upd.SoilType != nil {
		set("soil_type", *upd.SoilType)
	}
	if upd.CropPreferences != nil {
		set("crop_preferences", marshalList(upd.CropPreferences))
	}
	if upd.SustainabilityGoals != nil {
		set("sustainability_goals", marshalList(upd.SustainabilityGoals))
	}
	if upd.IrrigationPreference != nil {
		set("irrigation_preference", *upd.IrrigationPreference)
	}
	if upd.Language != nil {
		set("language", *upd.Language)
	}
	if upd.OnboardingComplete != nil {
		set("onboarding_complete", boolToInt(*upd.OnboardingComplete))
	}
	if upd.Avatar != nil {
		set("avatar", *upd.Avatar)
	}
	if len(sets) == 0 {
		return model.User{}, ErrNoFields
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE users SET %s WHERE id=?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return model.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.User{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// AddPoints increments the user's points and returns the new total.
func (r *UserRepo) AddPoints(ctx context.Context, id string, delta int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET points=points+? WHERE id=?", delta, id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrNotFound
	}
	var points int64
	err = r.DB.QueryRowContext(ctx, "SELECT points FROM users WHERE id=?", id).Scan(&points)
	return points, err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u                    model.User
		badges, crops, goals string
		onboarding           int
		createdAt            int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role,
		&u.Points, &u.Level, &u.Streak, &badges, &u.Location, &u.SoilType,
		&crops, &goals, &u.IrrigationPreference, &u.Language, &u.Avatar,
		&onboarding, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Badges = unmarshalList(badges)
	u.CropPreferences = unmarshalList(crops)
	u.SustainabilityGoals = unmarshalList(goals)
	u.OnboardingComplete = onboarding != 0
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// marshalList serializes a string slice as JSON text for storage.  A nil
// slice becomes an empty array so reads never see NULL.
func marshalList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
