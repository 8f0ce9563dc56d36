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

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

const collectionAttendance = "attendance"

// recordDocument is the stored shape of one daily attendance row.
type recordDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Date          string             `bson:"date"`
	TelegramID    string             `bson:"telegram_id"`
	FullName      string             `bson:"full_name"`
	Role          string             `bson:"role"`
	Phone         string             `bson:"phone"`
	ArrivalTime   string             `bson:"arrival_time"`
	DepartureTime string             `bson:"departure_time"`
	WorkedHours   string             `bson:"worked_hours"`
	Status        string             `bson:"status"`
	EvidenceRef   string             `bson:"evidence_ref"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

// fieldNames maps table columns to document fields.
var fieldNames = map[domain.Column]string{
	domain.ColumnDate:          "date",
	domain.ColumnTelegramID:    "telegram_id",
	domain.ColumnFullName:      "full_name",
	domain.ColumnRole:          "role",
	domain.ColumnPhone:         "phone",
	domain.ColumnArrivalTime:   "arrival_time",
	domain.ColumnDepartureTime: "departure_time",
	domain.ColumnWorkedHours:   "worked_hours",
	domain.ColumnStatus:        "status",
	domain.ColumnEvidenceRef:   "evidence_ref",
}

func toDocument(rec *domain.Record, now time.Time) recordDocument {
	return recordDocument{
		Date:          rec.Date,
		TelegramID:    rec.Identity,
		FullName:      rec.FullName,
		Role:          rec.Role,
		Phone:         rec.Phone,
		ArrivalTime:   rec.ArrivalTime,
		DepartureTime: rec.DepartureTime,
		WorkedHours:   rec.WorkedHours,
		Status:        rec.Status,
		EvidenceRef:   rec.EvidenceRef,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d recordDocument) toRecord() *domain.Record {
	return &domain.Record{
		Handle: domain.RecordHandle{
			Ref:      d.ID.Hex(),
			Identity: d.TelegramID,
			Date:     d.Date,
		},
		Date:          d.Date,
		Identity:      d.TelegramID,
		FullName:      d.FullName,
		Role:          d.Role,
		Phone:         d.Phone,
		ArrivalTime:   d.ArrivalTime,
		DepartureTime: d.DepartureTime,
		WorkedHours:   d.WorkedHours,
		Status:        d.Status,
		EvidenceRef:   d.EvidenceRef,
	}
}

// setDocument builds the $set body for a field update.
func setDocument(fields domain.FieldSet, now time.Time) (bson.M, error) {
	set := bson.M{"updated_at": now}
	for c, v := range fields {
		name, ok := fieldNames[c]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		set[name] = v
	}
	return set, nil
}

// RecordRepository stores one document per (telegram_id, date). A unique
// index enforces the key, so concurrent first writes of a day cannot both
// succeed.
type RecordRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewRecordRepository(db *mongo.Database) *RecordRepository {
	return &RecordRepository{col: db.Collection(collectionAttendance), now: time.Now}
}

// FindByIdentityAndDate retrieves the day's record of one identity.
func (r *RecordRepository) FindByIdentityAndDate(ctx context.Context, identity, date string) (*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc recordDocument
	err := r.col.FindOne(ctx, bson.M{"telegram_id": identity, "date": date}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.toRecord(), nil
}

// Append inserts a new record document.
func (r *RecordRepository) Append(ctx context.Context, rec *domain.Record) (domain.RecordHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toDocument(rec, r.now().UTC()))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.RecordHandle{}, domain.ErrRecordExists
		}
		return domain.RecordHandle{}, err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return domain.RecordHandle{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	rec.Handle = domain.RecordHandle{Ref: oid.Hex(), Identity: rec.Identity, Date: rec.Date}
	return rec.Handle, nil
}

// UpdateFields sets the given fields in one document update. The filter
// repeats the handle's key so a document that no longer carries it is not
// touched.
func (r *RecordRepository) UpdateFields(ctx context.Context, h domain.RecordHandle, fields domain.FieldSet) error {
	oid, err := primitive.ObjectIDFromHex(h.Ref)
	if err != nil {
		return fmt.Errorf("bad record handle %q: %w", h.Ref, err)
	}
	set, err := setDocument(fields, r.now().UTC())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "telegram_id": h.Identity, "date": h.Date}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrStaleHandle
	}
	return nil
}

// ListByIdentity returns every record of one identity in insertion order.
func (r *RecordRepository) ListByIdentity(ctx context.Context, identity string) ([]*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"telegram_id": identity},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRecord())
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the attendance collection.
func (r *RecordRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "telegram_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("telegram_id_date_unique"),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
