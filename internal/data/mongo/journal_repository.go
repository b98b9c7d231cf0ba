package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultJournalCollection is used when no collection name is configured
	DefaultJournalCollection = "reconciliation_journal"
)

// journalDocument is the stored form of a snapshot. Amounts are kept as
// decimal strings so no precision is lost to float64.
type journalDocument struct {
	ID            string    `bson:"_id"`
	SourceKind    string    `bson:"source_kind"`
	SourceID      string    `bson:"source_id"`
	Previous      string    `bson:"previous"`
	Recomputed    string    `bson:"recomputed"`
	Drift         string    `bson:"drift"`
	Trigger       string    `bson:"trigger"`
	CorrelationID string    `bson:"correlation_id,omitempty"`
	ComputedAt    time.Time `bson:"computed_at"`
}

func toJournalDocument(s *reconciliation.Snapshot) journalDocument {
	return journalDocument{
		ID:            s.ID.String(),
		SourceKind:    string(s.Source.Kind),
		SourceID:      s.Source.ID.String(),
		Previous:      s.Previous.StringFixed(shared.CurrencyPlaces),
		Recomputed:    s.Recomputed.StringFixed(shared.CurrencyPlaces),
		Drift:         s.Drift.StringFixed(shared.CurrencyPlaces),
		Trigger:       s.Trigger,
		CorrelationID: s.CorrelationID,
		ComputedAt:    s.ComputedAt.UTC(),
	}
}

func (d journalDocument) toSnapshot() (*reconciliation.Snapshot, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q: %w", d.ID, err)
	}
	sourceID, err := uuid.Parse(d.SourceID)
	if err != nil {
		return nil, fmt.Errorf("invalid source id %q on snapshot %s: %w", d.SourceID, d.ID, err)
	}
	src := shared.FundingSource{Kind: shared.SourceKind(d.SourceKind), ID: sourceID}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt funding source on snapshot %s: %w", d.ID, err)
	}

	amounts := make([]decimal.Decimal, 3)
	for i, raw := range []string{d.Previous, d.Recomputed, d.Drift} {
		amounts[i], err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q on snapshot %s: %w", raw, d.ID, err)
		}
	}

	return &reconciliation.Snapshot{
		ID:            id,
		Source:        src,
		Previous:      amounts[0],
		Recomputed:    amounts[1],
		Drift:         amounts[2],
		Trigger:       d.Trigger,
		CorrelationID: d.CorrelationID,
		ComputedAt:    d.ComputedAt.UTC(),
	}, nil
}

func sourceFilter(src shared.FundingSource) bson.M {
	return bson.M{"source_kind": string(src.Kind), "source_id": src.ID.String()}
}

// JournalRepository implements reconciliation.JournalRepository for MongoDB
type JournalRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewJournalRepository creates a new MongoDB reconciliation journal
func NewJournalRepository(logger *slog.Logger, db *mongo.Database, collection string) *JournalRepository {
	if collection == "" {
		collection = DefaultJournalCollection
	}
	return &JournalRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// EnsureIndexes creates the index backing per-source history queries
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "source_kind", Value: 1},
			{Key: "source_id", Value: 1},
			{Key: "computed_at", Value: -1},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create journal index", "error", err)
		return fmt.Errorf("failed to create journal index: %w", err)
	}
	return nil
}

// Append stores a snapshot. Re-publishing the same snapshot id is a no-op, so
// the outbox poller may retry after a partial failure.
func (r *JournalRepository) Append(ctx context.Context, snapshot *reconciliation.Snapshot) error {
	doc := toJournalDocument(snapshot)

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("Failed to append reconciliation snapshot",
			"snapshot_id", doc.ID,
			"funding_source", snapshot.Source.String(),
			"error", err)
		return fmt.Errorf("failed to append reconciliation snapshot: %w", err)
	}

	return nil
}

// GetByID retrieves one snapshot.
// Returns ErrSnapshotNotFound if it was never published.
func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*reconciliation.Snapshot, error) {
	var doc journalDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconciliation.ErrSnapshotNotFound{SnapshotID: id}
		}
		r.logger.Error("Failed to get reconciliation snapshot",
			"snapshot_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get reconciliation snapshot: %w", err)
	}

	return doc.toSnapshot()
}

// ListBySource retrieves paginated snapshots for one account or card, newest first
func (r *JournalRepository) ListBySource(ctx context.Context, src shared.FundingSource, limit, offset int) ([]*reconciliation.Snapshot, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "computed_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, sourceFilter(src), opts)
	if err != nil {
		r.logger.Error("Failed to list reconciliation snapshots",
			"funding_source", src.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list reconciliation snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []journalDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode reconciliation snapshots",
			"funding_source", src.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode reconciliation snapshots: %w", err)
	}

	snapshots := make([]*reconciliation.Snapshot, 0, len(docs))
	for _, doc := range docs {
		s, err := doc.toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, nil
}

// CountBySource counts the snapshots recorded for one account or card
func (r *JournalRepository) CountBySource(ctx context.Context, src shared.FundingSource) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, sourceFilter(src))
	if err != nil {
		r.logger.Error("Failed to count reconciliation snapshots",
			"funding_source", src.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count reconciliation snapshots: %w", err)
	}

	return count, nil
}

var _ reconciliation.JournalRepository = (*JournalRepository)(nil)
