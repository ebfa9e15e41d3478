package domain

import "time"

// AlertStatus is the lifecycle state of an alert as reported by the
// receiving agency.
type AlertStatus string

const (
	StatusPending    AlertStatus = "pending"
	StatusInProgress AlertStatus = "in_progress"
	StatusResolved   AlertStatus = "resolved"
	StatusRejected   AlertStatus = "rejected"
)

// Valid reports whether s is one of the allowed status values. The engine
// deliberately does not enforce transition order: agencies may write any
// allowed status at any time, and every write is recorded in the history.
func (s AlertStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// ProofType identifies the media category of a proof.
type ProofType string

const (
	ProofPhoto ProofType = "photo"
	ProofVideo ProofType = "video"
	ProofAudio ProofType = "audio"
	ProofImage ProofType = "image"
)

// Proof is a media attachment evidencing an alert. URL points at the local
// copy; the cloudinary fields reference the durable remote copy when the
// upload succeeded.
type Proof struct {
	Type                ProofType `json:"type" bson:"type"`
	URL                 string    `json:"url" bson:"url"`
	Thumbnail           string    `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	CloudinaryURL       string    `json:"cloudinary_url,omitempty" bson:"cloudinary_url,omitempty"`
	CloudinaryPublicID  string    `json:"cloudinary_public_id,omitempty" bson:"cloudinary_public_id,omitempty"`
	CloudinaryThumbnail string    `json:"cloudinary_thumbnail,omitempty" bson:"cloudinary_thumbnail,omitempty"`
	UploadError         string    `json:"cloudinary_error,omitempty" bson:"cloudinary_error,omitempty"`
	Size                int64     `json:"size,omitempty" bson:"size,omitempty"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
}

// Location is the geolocated position of an alert.
type Location struct {
	GeoPoint `bson:",inline"`
	Address  string `json:"address,omitempty" bson:"address,omitempty"`
}

// StatusHistoryEntry records a single status write. The history is
// append-only: entries are never mutated or pruned.
type StatusHistoryEntry struct {
	Status    AlertStatus `json:"status" bson:"status"`
	Comment   string      `json:"comment,omitempty" bson:"comment,omitempty"`
	UpdatedBy string      `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
}

// Comment authors as displayed to citizens.
const (
	CommentAuthorCitizen = "Citoyen"
	CommentAuthorSystem  = "Système"
)

// Comment is an entry in an alert's discussion log. AuthorID is empty for
// system and agency comments.
type Comment struct {
	Text      string    `json:"text" bson:"text"`
	Author    string    `json:"author" bson:"author"`
	AuthorID  string    `json:"author_id,omitempty" bson:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Alert is a citizen-submitted incident report tied to one agency.
//
// CitizenID is empty when the alert is anonymous; CreatedBy is always set
// when a known citizen filed it, so creators can list their own anonymous
// alerts. Both are hex-string ids: references are normalized at the
// repository boundary so ownership checks here are plain string equality.
type Alert struct {
	ID                 string               `json:"id"`
	CitizenID          string               `json:"citizen_id,omitempty"`
	CreatedBy          string               `json:"-"`
	ServiceID          string               `json:"service_id"`
	Category           string               `json:"category,omitempty"`
	Description        string               `json:"description,omitempty"`
	Location           Location             `json:"location"`
	Proofs             []Proof              `json:"proofs"`
	IsAnonymous        bool                 `json:"is_anonymous"`
	Status             AlertStatus          `json:"status"`
	StatusHistory      []StatusHistoryEntry `json:"status_history"`
	Comments           []Comment            `json:"comments"`
	ServiceReferenceID string               `json:"service_reference_id,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// OwnedBy reports whether citizenID may read the alert: either as the public
// owner or as the creator of an anonymous alert.
func (a *Alert) OwnedBy(citizenID string) bool {
	if citizenID == "" {
		return false
	}
	return a.CitizenID == citizenID || a.CreatedBy == citizenID
}
