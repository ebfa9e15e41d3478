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

const collectionAlerts = "alerts"

// AlertRepository implements ports.AlertRepository on MongoDB. Comment and
// status writes use single-document $push updates so concurrent webhooks
// interleave without losing entries.
type AlertRepository struct {
	col *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{col: db.Collection(collectionAlerts)}
}

type alertDoc struct {
	ID                 primitive.ObjectID          `bson:"_id,omitempty"`
	CitizenID          *primitive.ObjectID         `bson:"citizen_id,omitempty"`
	CreatedBy          *primitive.ObjectID         `bson:"created_by,omitempty"`
	ServiceID          primitive.ObjectID          `bson:"service"`
	Category           string                      `bson:"category,omitempty"`
	Description        string                      `bson:"description,omitempty"`
	Location           domain.Location             `bson:"location"`
	Proofs             []domain.Proof              `bson:"proofs"`
	IsAnonymous        bool                        `bson:"is_anonymous"`
	Status             domain.AlertStatus          `bson:"status"`
	StatusHistory      []domain.StatusHistoryEntry `bson:"status_history"`
	Comments           []domain.Comment            `bson:"comments"`
	ServiceReferenceID string                      `bson:"service_reference_id,omitempty"`
	CreatedAt          time.Time                   `bson:"created_at"`
	UpdatedAt          time.Time                   `bson:"updated_at"`
}

func toAlertDoc(a *domain.Alert) (alertDoc, error) {
	serviceID, err := primitive.ObjectIDFromHex(a.ServiceID)
	if err != nil {
		return alertDoc{}, fmt.Errorf("invalid service id %q: %w", a.ServiceID, err)
	}

	doc := alertDoc{
		ServiceID:          serviceID,
		Category:           a.Category,
		Description:        a.Description,
		Location:           a.Location,
		Proofs:             a.Proofs,
		IsAnonymous:        a.IsAnonymous,
		Status:             a.Status,
		StatusHistory:      a.StatusHistory,
		Comments:           a.Comments,
		ServiceReferenceID: a.ServiceReferenceID,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.CitizenID != "" {
		oid, err := primitive.ObjectIDFromHex(a.CitizenID)
		if err != nil {
			return alertDoc{}, fmt.Errorf("invalid citizen id %q: %w", a.CitizenID, err)
		}
		doc.CitizenID = &oid
	}
	if a.CreatedBy != "" {
		oid, err := primitive.ObjectIDFromHex(a.CreatedBy)
		if err != nil {
			return alertDoc{}, fmt.Errorf("invalid creator id %q: %w", a.CreatedBy, err)
		}
		doc.CreatedBy = &oid
	}
	return doc, nil
}

func (d alertDoc) toDomain() *domain.Alert {
	a := &domain.Alert{
		ID:                 d.ID.Hex(),
		ServiceID:          d.ServiceID.Hex(),
		Category:           d.Category,
		Description:        d.Description,
		Location:           d.Location,
		Proofs:             d.Proofs,
		IsAnonymous:        d.IsAnonymous,
		Status:             d.Status,
		StatusHistory:      d.StatusHistory,
		Comments:           d.Comments,
		ServiceReferenceID: d.ServiceReferenceID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.CitizenID != nil {
		a.CitizenID = d.CitizenID.Hex()
	}
	if d.CreatedBy != nil {
		a.CreatedBy = d.CreatedBy.Hex()
	}
	return a
}

func (r *AlertRepository) Insert(ctx context.Context, alert *domain.Alert) (*domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toAlertDoc(alert)
	if err != nil {
		return nil, err
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	created := *alert
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id string) (*domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAlertNotFound
	}

	var d alertDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("find alert: %w", err)
	}
	return d.toDomain(), nil
}

func (r *AlertRepository) FindByCitizen(ctx context.Context, citizenID string) ([]*domain.Alert, error) {
	oid, err := primitive.ObjectIDFromHex(citizenID)
	if err != nil {
		return []*domain.Alert{}, nil
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"citizen_id": oid},
		bson.M{"created_by": oid},
	}}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *AlertRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Alert, error) {
	filter := bson.M{"category": category}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// FindNearby runs a $near query on the 2dsphere index. Anonymous alerts
// never surface in proximity searches.
func (r *AlertRepository) FindNearby(ctx context.Context, coordinates []float64, maxDistanceMeters int, limit int) ([]*domain.Alert, error) {
	filter, opts := nearbyQuery(coordinates, maxDistanceMeters, limit)
	return r.findMany(ctx, filter, opts)
}

// nearbyQuery builds the $near filter and options for a proximity search.
// Results come back newest first, capped at limit.
func nearbyQuery(coordinates []float64, maxDistanceMeters, limit int) (bson.M, *options.FindOptions) {
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": coordinates,
				},
				"$maxDistance": maxDistanceMeters,
			},
		},
		"is_anonymous": false,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return filter, opts
}

func (r *AlertRepository) AppendComment(ctx context.Context, alertID string, comment domain.Comment) error {
	return r.pushUpdate(ctx, alertID, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": comment.CreatedAt},
	})
}

// AppendStatus sets the current status and appends the history entry in a
// single document write.
func (r *AlertRepository) AppendStatus(ctx context.Context, alertID string, entry domain.StatusHistoryEntry) error {
	return r.pushUpdate(ctx, alertID, bson.M{
		"$set":  bson.M{"status": entry.Status, "updated_at": entry.UpdatedAt},
		"$push": bson.M{"status_history": entry},
	})
}

func (r *AlertRepository) SetServiceReference(ctx context.Context, alertID, referenceID string) error {
	return r.pushUpdate(ctx, alertID, bson.M{
		"$set": bson.M{"service_reference_id": referenceID},
	})
}

func (r *AlertRepository) pushUpdate(ctx context.Context, alertID string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(alertID)
	if err != nil {
		return domain.ErrAlertNotFound
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepository) findMany(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find alerts: %w", err)
	}
	defer cur.Close(ctx)

	alerts := []*domain.Alert{}
	for cur.Next(ctx) {
		var d alertDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		alerts = append(alerts, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// EnsureIndexes creates the geospatial and lookup indexes the alert queries
// depend on.
func (r *AlertRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "citizen_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
