package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository on MongoDB.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

// userDoc is the stored shape of a citizen account. ObjectIDs stay inside
// this package; the domain only ever sees hex strings.
type userDoc struct {
	ID                   primitive.ObjectID             `bson:"_id,omitempty"`
	FullName             string                         `bson:"full_name"`
	Email                string                         `bson:"email,omitempty"`
	Phone                string                         `bson:"phone,omitempty"`
	PasswordHash         string                         `bson:"password_hash"`
	Role                 string                         `bson:"role"`
	IsVerified           bool                           `bson:"is_verified"`
	IsActive             bool                           `bson:"is_active"`
	Region               string                         `bson:"region,omitempty"`
	Location             domain.GeoPoint                `bson:"location"`
	ProfilePicture       string                         `bson:"profile_picture,omitempty"`
	VerificationToken    string                         `bson:"verification_token,omitempty"`
	ResetPasswordToken   string                         `bson:"reset_password_token,omitempty"`
	ResetPasswordExpires time.Time                      `bson:"reset_password_expires,omitempty"`
	LastLogin            time.Time                      `bson:"last_login,omitempty"`
	IsTemporaryPassword  bool                           `bson:"is_temporary_password"`
	Notifications        domain.NotificationPreferences `bson:"notification_preferences"`
	Points               int                            `bson:"points"`
	Badges               []domain.Badge                 `bson:"badges,omitempty"`
	CreatedAt            time.Time                      `bson:"created_at"`
	UpdatedAt            time.Time                      `bson:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		FullName:             u.FullName,
		Email:                u.Email,
		Phone:                u.Phone,
		PasswordHash:         u.PasswordHash,
		Role:                 u.Role,
		IsVerified:           u.IsVerified,
		IsActive:             u.IsActive,
		Region:               u.Region,
		Location:             u.Location,
		ProfilePicture:       u.ProfilePicture,
		VerificationToken:    u.VerificationToken,
		ResetPasswordToken:   u.ResetPasswordToken,
		ResetPasswordExpires: u.ResetPasswordExpires,
		LastLogin:            u.LastLogin,
		IsTemporaryPassword:  u.IsTemporaryPassword,
		Notifications:        u.Notifications,
		Points:               u.Points,
		Badges:               u.Badges,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:                   d.ID.Hex(),
		FullName:             d.FullName,
		Email:                d.Email,
		Phone:                d.Phone,
		PasswordHash:         d.PasswordHash,
		Role:                 d.Role,
		IsVerified:           d.IsVerified,
		IsActive:             d.IsActive,
		Region:               d.Region,
		Location:             d.Location,
		ProfilePicture:       d.ProfilePicture,
		VerificationToken:    d.VerificationToken,
		ResetPasswordToken:   d.ResetPasswordToken,
		ResetPasswordExpires: d.ResetPasswordExpires,
		LastLogin:            d.LastLogin,
		IsTemporaryPassword:  d.IsTemporaryPassword,
		Notifications:        d.Notifications,
		Points:               d.Points,
		Badges:               d.Badges,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toUserDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByPhoneVariants(ctx context.Context, variants []string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"phone": bson.M{"$in": variants}})
}

// FindByEmailAndPhone matches on whichever identifiers were submitted.
// Phone-only accounts store no email field at all, so an empty value must
// stay out of the filter or they would never match.
func (r *UserRepository) FindByEmailAndPhone(ctx context.Context, email, phone string) (*domain.User, error) {
	return r.findOne(ctx, emailPhoneFilter(email, phone))
}

func emailPhoneFilter(email, phone string) bson.M {
	filter := bson.M{}
	if email != "" {
		filter["email"] = email
	}
	if phone != "" {
		filter["phone"] = phone
	}
	return filter
}

func (r *UserRepository) FindByValidResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, bson.M{
		"reset_password_token":   token,
		"reset_password_expires": bson.M{"$gt": now},
	})
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	doc := toUserDoc(user)
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return d.toDomain(), nil
}

// EnsureIndexes creates the indexes the users collection depends on. The
// email index is unique but sparse so phone-only accounts coexist.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
		{Keys: bson.D{{Key: "reset_password_token", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
