package domain

import "time"

const (
	RoleCitizen   = "citizen"
	RoleAnonymous = "anonymous"
)

// GeoPoint is a GeoJSON point: coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a [longitude, latitude] pair.
func NewGeoPoint(coordinates []float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: coordinates}
}

// NotificationPreferences selects the channels a citizen wants to be
// reached on.
type NotificationPreferences struct {
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

// Badge is a reward earned through reporting activity.
type Badge struct {
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	EarnedAt    time.Time `json:"earned_at" bson:"earned_at"`
}

// User models a registered citizen. Sensitive fields are never serialized:
// handlers return the struct directly and rely on the json:"-" tags.
type User struct {
	ID             string   `json:"id"`
	FullName       string   `json:"full_name"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	PasswordHash   string   `json:"-"`
	Role           string   `json:"role"`
	IsVerified     bool     `json:"is_verified"`
	IsActive       bool     `json:"is_active"`
	Region         string   `json:"region,omitempty"`
	Location       GeoPoint `json:"location"`
	ProfilePicture string   `json:"profile_picture,omitempty"`

	VerificationToken    string    `json:"-"`
	ResetPasswordToken   string    `json:"-"`
	ResetPasswordExpires time.Time `json:"-"`

	LastLogin           time.Time               `json:"last_login,omitempty"`
	IsTemporaryPassword bool                    `json:"-"`
	Notifications       NotificationPreferences `json:"notification_preferences"`
	Points              int                     `json:"points"`
	Badges              []Badge                 `json:"badges,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasContact reports whether at least one of email/phone is present.
// A user without either is unreachable and must be rejected at registration.
func (u *User) HasContact() bool {
	return u.Email != "" || u.Phone != ""
}

// DefaultLocation is the fallback user location (Dakar).
func DefaultLocation() GeoPoint {
	return NewGeoPoint([]float64{-17.4676, 14.7167})
}
