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

const collectionAgencies = "available_services"

// AgencyRepository implements ports.AgencyRepository on MongoDB.
type AgencyRepository struct {
	col *mongo.Collection
}

func NewAgencyRepository(db *mongo.Database) *AgencyRepository {
	return &AgencyRepository{col: db.Collection(collectionAgencies)}
}

type agencyDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Icon        string             `bson:"icon"`
	Color       string             `bson:"color"`
	Endpoint    string             `bson:"endpoint"`
	APIURL      string             `bson:"api_url"`
	IsActive    bool               `bson:"is_active"`
	IsAvailable bool               `bson:"is_available"`
	Categories  []domain.Category  `bson:"categories"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toAgencyDoc(a *domain.Agency) agencyDoc {
	return agencyDoc{
		Name:        a.Name,
		Description: a.Description,
		Icon:        a.Icon,
		Color:       a.Color,
		Endpoint:    a.Endpoint,
		APIURL:      a.APIURL,
		IsActive:    a.IsActive,
		IsAvailable: a.IsAvailable,
		Categories:  a.Categories,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d agencyDoc) toDomain() *domain.Agency {
	return &domain.Agency{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		Color:       d.Color,
		Endpoint:    d.Endpoint,
		APIURL:      d.APIURL,
		IsActive:    d.IsActive,
		IsAvailable: d.IsAvailable,
		Categories:  d.Categories,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (r *AgencyRepository) FindActive(ctx context.Context) ([]*domain.Agency, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("find agencies: %w", err)
	}
	defer cur.Close(ctx)

	agencies := []*domain.Agency{}
	for cur.Next(ctx) {
		var d agencyDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode agency: %w", err)
		}
		agencies = append(agencies, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate agencies: %w", err)
	}
	return agencies, nil
}

func (r *AgencyRepository) FindByID(ctx context.Context, id string) (*domain.Agency, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrServiceNotFound
	}

	var d agencyDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("find agency: %w", err)
	}
	return d.toDomain(), nil
}

func (r *AgencyRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *AgencyRepository) InsertMany(ctx context.Context, agencies []*domain.Agency) ([]*domain.Agency, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs := make([]interface{}, 0, len(agencies))
	for _, a := range agencies {
		docs = append(docs, toAgencyDoc(a))
	}

	res, err := r.col.InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("insert agencies: %w", err)
	}

	created := make([]*domain.Agency, len(agencies))
	for i, a := range agencies {
		copy := *a
		if i < len(res.InsertedIDs) {
			copy.ID = res.InsertedIDs[i].(primitive.ObjectID).Hex()
		}
		created[i] = &copy
	}
	return created, nil
}

func (r *AgencyRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrServiceNotFound
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"is_available": available, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update agency: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

// EnsureIndexes creates the unique name index on the agency catalog.
func (r *AgencyRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "endpoint", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
