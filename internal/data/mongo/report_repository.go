package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wallet-ledger/internal/domain/reconciliation"
)

const (
	// ReportsCollectionName is the name of the reconciliation reports collection in MongoDB
	ReportsCollectionName = "reconciliation_reports"

	defaultReportLimit = 20
)

// reportDocument is the stored shape of a report. Money is kept as Decimal128.
type reportDocument struct {
	ID               string               `bson:"_id"`
	WalletID         string               `bson:"wallet_id"`
	UserID           string               `bson:"user_id"`
	StoredBalance    primitive.Decimal128 `bson:"stored_balance"`
	ComputedBalance  primitive.Decimal128 `bson:"computed_balance"`
	Difference       primitive.Decimal128 `bson:"difference"`
	Tolerance        primitive.Decimal128 `bson:"tolerance"`
	TransactionCount int64                `bson:"transaction_count"`
	Outcome          string               `bson:"outcome"`
	FlagReason       string               `bson:"flag_reason,omitempty"`
	WalletVersion    int                  `bson:"wallet_version"`
	Attempts         int                  `bson:"attempts"`
	ReconciledAt     time.Time            `bson:"reconciled_at"`
}

// ReportRepository implements the reconciliation.Repository interface for MongoDB
type ReportRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReportRepository creates a new MongoDB reconciliation report repository
func NewReportRepository(logger *slog.Logger, db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the index serving the per-wallet history queries
func (r *ReportRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ReportsCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "reconciled_at", Value: -1}},
	})
	if err != nil {
		r.logger.Error("Failed to create reconciliation report index", "error", err)
		return fmt.Errorf("failed to create reconciliation report index: %w", err)
	}
	return nil
}

// Save stores a new report. Reports are append-only.
func (r *ReportRepository) Save(ctx context.Context, report *reconciliation.Report) error {
	collection := r.db.Collection(ReportsCollectionName)

	doc, err := toDocument(report)
	if err != nil {
		return fmt.Errorf("failed to encode reconciliation report: %w", err)
	}

	if _, err := collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to save reconciliation report",
			"wallet_id", report.WalletID.String(),
			"error", err)
		return fmt.Errorf("failed to save reconciliation report: %w", err)
	}

	return nil
}

// GetLatest returns the most recent report of a wallet.
// Returns ErrReportNotFound if the wallet has none.
func (r *ReportRepository) GetLatest(ctx context.Context, walletID uuid.UUID) (*reconciliation.Report, error) {
	collection := r.db.Collection(ReportsCollectionName)

	filter := bson.M{"wallet_id": walletID.String()}
	opts := options.FindOne().SetSort(bson.D{{Key: "reconciled_at", Value: -1}})

	var doc reportDocument
	err := collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconciliation.ErrReportNotFound{WalletID: walletID}
		}
		r.logger.Error("Failed to get latest reconciliation report",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get latest reconciliation report: %w", err)
	}

	return fromDocument(&doc)
}

// ListByWallet retrieves paginated reports of a wallet, newest first
func (r *ReportRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*reconciliation.Report, error) {
	collection := r.db.Collection(ReportsCollectionName)

	if limit <= 0 {
		limit = defaultReportLimit
	}
	filter := bson.M{"wallet_id": walletID.String()}
	opts := options.Find().
		SetSort(bson.D{{Key: "reconciled_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list reconciliation reports",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list reconciliation reports: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reportDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode reconciliation reports",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode reconciliation reports: %w", err)
	}

	reports := make([]*reconciliation.Report, 0, len(docs))
	for i := range docs {
		report, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func toDocument(r *reconciliation.Report) (*reportDocument, error) {
	amounts := make([]primitive.Decimal128, 4)
	for i, d := range []decimal.Decimal{r.StoredBalance, r.ComputedBalance, r.Difference, r.Tolerance} {
		v, err := primitive.ParseDecimal128(d.String())
		if err != nil {
			return nil, err
		}
		amounts[i] = v
	}

	return &reportDocument{
		ID:               r.ID.String(),
		WalletID:         r.WalletID.String(),
		UserID:           r.UserID,
		StoredBalance:    amounts[0],
		ComputedBalance:  amounts[1],
		Difference:       amounts[2],
		Tolerance:        amounts[3],
		TransactionCount: r.TransactionCount,
		Outcome:          string(r.Outcome),
		FlagReason:       r.FlagReason,
		WalletVersion:    r.WalletVersion,
		Attempts:         r.Attempts,
		ReconciledAt:     r.ReconciledAt,
	}, nil
}

func fromDocument(doc *reportDocument) (*reconciliation.Report, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", doc.ID, err)
	}
	walletID, err := uuid.Parse(doc.WalletID)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet id %q: %w", doc.WalletID, err)
	}

	amounts := make([]decimal.Decimal, 4)
	for i, v := range []primitive.Decimal128{doc.StoredBalance, doc.ComputedBalance, doc.Difference, doc.Tolerance} {
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, fmt.Errorf("invalid decimal in report %s: %w", doc.ID, err)
		}
		amounts[i] = d
	}

	return &reconciliation.Report{
		ID:               id,
		WalletID:         walletID,
		UserID:           doc.UserID,
		StoredBalance:    amounts[0],
		ComputedBalance:  amounts[1],
		Difference:       amounts[2],
		Tolerance:        amounts[3],
		TransactionCount: doc.TransactionCount,
		Outcome:          reconciliation.Outcome(doc.Outcome),
		FlagReason:       doc.FlagReason,
		WalletVersion:    doc.WalletVersion,
		Attempts:         doc.Attempts,
		ReconciledAt:     doc.ReconciledAt,
	}, nil
}
