package models

import "time"

const (
	FareTypePayment = "fare_payment"
	FareTypeCredit  = "fare_credit"

	OperatorID   = "operator"
	OperatorName = "Dummy Bus Operator"
)

// TapEvent is a single RFID card read reported by a bus reader.
// Readers write the fare as fareAmount in rfid_events.
type TapEvent struct {
	UID        string  `bson:"uid" json:"uid"`
	FareAmount float64 `bson:"fareAmount,omitempty" json:"fare_amount,omitempty"`
}

type Account struct {
	ID      string  `bson:"_id" json:"id"`
	Balance float64 `bson:"balance" json:"balance"`
}

// LedgerEntry records one side of a processed fare.
type LedgerEntry struct {
	OwnerCollection string    `bson:"owner_collection" json:"owner_collection"`
	OwnerID         string    `bson:"owner_id" json:"owner_id"`
	Type            string    `bson:"type" json:"type"`
	Amount          float64   `bson:"amount" json:"amount"`
	Operator        string    `bson:"operator,omitempty" json:"operator,omitempty"`
	UserUID         string    `bson:"user_uid,omitempty" json:"user_uid,omitempty"`
	Timestamp       time.Time `bson:"timestamp" json:"timestamp"`
}
