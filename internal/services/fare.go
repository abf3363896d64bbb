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
	"github.com/markjakearzadon/esewa-gobackend.git/internal/logger"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/models"
)

var (
	ErrInvalidTap          = errors.New("invalid tap event")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// FareStore moves a fare from a rider to the operator. Implementations must
// apply the debit, the credit and both ledger entries atomically, or none of them.
type FareStore interface {
	ChargeFare(ctx context.Context, uid string, fare float64, at time.Time) error
}

type FareService struct {
	store       FareStore
	defaultFare float64
	now         func() time.Time
}

func NewFareService(store FareStore, defaultFare float64) *FareService {
	return &FareService{store: store, defaultFare: defaultFare, now: time.Now}
}

// ProcessTap charges the fare for one tap and returns the amount charged.
// Failures are returned, not logged.
func (s *FareService) ProcessTap(ctx context.Context, ev models.TapEvent) (float64, error) {
	if ev.UID == "" {
		return 0, fmt.Errorf("%w: uid is required", ErrInvalidTap)
	}
	if ev.FareAmount < 0 {
		return 0, fmt.Errorf("%w: negative fare %v", ErrInvalidTap, ev.FareAmount)
	}

	fare := ev.FareAmount
	if fare == 0 {
		fare = s.defaultFare
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.store.ChargeFare(ctx, ev.UID, fare, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("charge fare for %s: %w", ev.UID, err)
	}

	logger.Info("processed fare", "uid", ev.UID, "fare", fare)
	return fare, nil
}

type MongoFareStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	operators *mongo.Collection
	ledger    *mongo.Collection
}

func NewMongoFareStore(client *mongo.Client, database *mongo.Database) *MongoFareStore {
	return &MongoFareStore{
		client:    client,
		users:     database.Collection(db.UsersCollection),
		operators: database.Collection(db.OperatorsCollection),
		ledger:    database.Collection(db.LedgerCollection),
	}
}

// ChargeFare runs inside a multi-document transaction, which requires a replica set.
func (s *MongoFareStore) ChargeFare(ctx context.Context, uid string, fare float64, at time.Time) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var user models.Account
		if err := s.users.FindOne(sc, bson.M{"_id": uid}).Decode(&user); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		if user.Balance < fare {
			return nil, ErrInsufficientBalance
		}

		if _, err := s.users.UpdateOne(sc, bson.M{"_id": uid}, bson.M{"$inc": bson.M{"balance": -fare}}); err != nil {
			return nil, err
		}
		if _, err := s.operators.UpdateOne(sc,
			bson.M{"_id": models.OperatorID},
			bson.M{"$inc": bson.M{"balance": fare}},
			options.Update().SetUpsert(true),
		); err != nil {
			return nil, err
		}

		entries := []interface{}{
			models.LedgerEntry{
				OwnerCollection: db.UsersCollection,
				OwnerID:         uid,
				Type:            models.FareTypePayment,
				Amount:          fare,
				Operator:        models.OperatorName,
				Timestamp:       at,
			},
			models.LedgerEntry{
				OwnerCollection: db.OperatorsCollection,
				OwnerID:         models.OperatorID,
				Type:            models.FareTypeCredit,
				Amount:          fare,
				UserUID:         uid,
				Timestamp:       at,
			},
		}
		if _, err := s.ledger.InsertMany(sc, entries); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
