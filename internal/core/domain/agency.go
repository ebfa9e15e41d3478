package domain

import "time"

// Category is a named report category offered by an agency.
type Category struct {
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Agency is a downstream service citizens can report to (hygiene, police,
// customs, gendarmerie). Name is unique. Only active agencies accept new
// alerts; IsAvailable reflects the latest health probe result.
type Agency struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon"`
	Color       string     `json:"color"`
	Endpoint    string     `json:"endpoint"`
	APIURL      string     `json:"api_url"`
	IsActive    bool       `json:"is_active"`
	IsAvailable bool       `json:"is_available"`
	Categories  []Category `json:"categories"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsHygiene reports whether the agency is the hygiene service, which
// additionally receives alerts on its import endpoint.
func (a *Agency) IsHygiene() bool {
	return a.Endpoint == "hygiene" || a.Name == "hygiene"
}
