package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/db"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/models"
)

// ErrMissingField is returned when a callback lacks one of its required fields.
var ErrMissingField = errors.New("missing required field")

// TransactionStore writes a transaction document, replacing any previous
// document with the same transaction id.
type TransactionStore interface {
	Put(ctx context.Context, tx *models.Transaction) error
}

type SuccessCallback struct {
	TransactionID string
	UserID        string
	Amount        *float64
}

type FailureCallback struct {
	TransactionID string
	UserID        string
}

type TransactionService struct {
	store   TransactionStore
	timeout time.Duration
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{store: store, timeout: 5 * time.Second}
}

// RecordSuccess stores a successful payment. A zero amount counts as missing.
func (s *TransactionService) RecordSuccess(ctx context.Context, cb SuccessCallback) (*models.Transaction, error) {
	switch {
	case cb.TransactionID == "":
		return nil, fmt.Errorf("%w: transaction_id", ErrMissingField)
	case cb.UserID == "":
		return nil, fmt.Errorf("%w: user_id", ErrMissingField)
	case cb.Amount == nil || *cb.Amount == 0:
		return nil, fmt.Errorf("%w: amount", ErrMissingField)
	}

	amount := *cb.Amount
	tx := &models.Transaction{
		ID:            cb.TransactionID,
		UserID:        cb.UserID,
		TransactionID: cb.TransactionID,
		Amount:        &amount,
		Status:        models.StatusSuccess,
	}
	if err := s.put(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// RecordFailure stores a failed payment. Failure documents never carry an amount.
func (s *TransactionService) RecordFailure(ctx context.Context, cb FailureCallback) (*models.Transaction, error) {
	switch {
	case cb.TransactionID == "":
		return nil, fmt.Errorf("%w: transaction_id", ErrMissingField)
	case cb.UserID == "":
		return nil, fmt.Errorf("%w: user_id", ErrMissingField)
	}

	tx := &models.Transaction{
		ID:            cb.TransactionID,
		UserID:        cb.UserID,
		TransactionID: cb.TransactionID,
		Status:        models.StatusFailed,
	}
	if err := s.put(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *TransactionService) put(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Put(ctx, tx); err != nil {
		return fmt.Errorf("store transaction %s: %w", tx.TransactionID, err)
	}
	return nil
}

// MongoTransactionStore keeps transactions in the transactions collection,
// using the transaction id as the document key.
type MongoTransactionStore struct {
	collection *mongo.Collection
}

func NewMongoTransactionStore(database *mongo.Database) *MongoTransactionStore {
	return &MongoTransactionStore{collection: database.Collection(db.TransactionsCollection)}
}

func (s *MongoTransactionStore) Put(ctx context.Context, tx *models.Transaction) error {
	tx.ID = tx.TransactionID
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": tx.ID}, tx, options.Replace().SetUpsert(true))
	return err
}

// Get reads a transaction back. The callback path itself never reads.
func (s *MongoTransactionStore) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.collection.FindOne(ctx, bson.M{"_id": transactionID}).Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
