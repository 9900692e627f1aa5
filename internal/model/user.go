package model

import "time"

// Roles a user can hold.  The role travels in the access token and is
// enforced by the role middleware on protected routes.
const (
	RoleFarmer  = "Farmer"
	RoleLearner = "Learner"
	RoleExpert  = "Expert"
)

// User mirrors the 'users' table.  PasswordHash is never serialized; every
// other field is safe to return to the client.  List-valued fields are stored
// as JSON text in SQLite and exposed as slices here.
type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Name                 string    `json:"name"`
	Phone                string    `json:"phone"`
	Role                 string    `json:"role"`
	Points               int64     `json:"points"`
	Level                int64     `json:"level"`
	Streak               int64     `json:"streak"`
	Badges               []string  `json:"badges"`
	Location             string    `json:"location"`
	SoilType             string    `json:"soilType"`
	CropPreferences      []string  `json:"cropPreferences"`
	SustainabilityGoals  []string  `json:"sustainabilityGoals"`
	IrrigationPreference string    `json:"irrigationPreference"`
	Language             string    `json:"language"`
	Avatar               string    `json:"avatar"`
	OnboardingComplete   bool      `json:"onboardingComplete"`
	CreatedAt            time.Time `json:"createdAt"`
}
