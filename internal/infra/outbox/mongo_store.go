package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "venuehire/internal/app/outbox"
)

// MongoStore keeps events in the app_outbox collection. Add joins the mongo
// session carried by ctx, so events commit with the aggregate writes.
type MongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	col := db.Collection("app_outbox")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoStore{col: col, now: time.Now}, nil
}

func (s *MongoStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := s.now().UTC()
	doc := eventDocument{
		ID:            record.ID,
		Name:          record.Name,
		Payload:       record.Payload,
		OccurredAt:    record.OccurredAt,
		AggregateID:   record.AggregateID,
		AggregateType: record.AggregateType,
		Headers:       record.Headers,
		State:         StateNew,
		NextAttempt:   now,
		CreatedAt:     now,
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

// Flush is a no-op: the worker delivers stored events.
func (s *MongoStore) Flush(context.Context) error {
	return nil
}

type eventDocument struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	Payload       []byte            `bson:"payload"`
	OccurredAt    time.Time         `bson:"occurred_at"`
	AggregateID   string            `bson:"aggregate_id"`
	AggregateType string            `bson:"aggregate_type"`
	Headers       map[string]string `bson:"headers"`
	State         string            `bson:"state"`
	Attempts      int               `bson:"attempts"`
	NextAttempt   time.Time         `bson:"next_attempt_at"`
	ClaimedBy     string            `bson:"claimed_by,omitempty"`
	ClaimedAt     time.Time         `bson:"claimed_at,omitempty"`
	SentAt        time.Time         `bson:"sent_at,omitempty"`
	LastError     string            `bson:"last_error,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
}

func (s *MongoStore) Claim(ctx context.Context, workerID string, now time.Time) (*Pending, error) {
	filter := bson.M{"state": bson.M{"$in": []string{StateNew, StateFailed}}, "next_attempt_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"state": StateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})
	var doc eventDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &Pending{
		EventRecord: appoutbox.EventRecord{
			ID:            doc.ID,
			Name:          doc.Name,
			Payload:       doc.Payload,
			OccurredAt:    doc.OccurredAt,
			AggregateID:   doc.AggregateID,
			AggregateType: doc.AggregateType,
			Headers:       doc.Headers,
		},
		Attempts: doc.Attempts,
	}, nil
}

func (s *MongoStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": StateSent, "sent_at": at}})
	return err
}

func (s *MongoStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           StateFailed,
			"next_attempt_at": next,
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

var (
	_ appoutbox.Outbox = (*MongoStore)(nil)
	_ Store            = (*MongoStore)(nil)
)
