package models

type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// Transaction is one eSewa payment outcome, keyed by the provider's transaction id.
// Amount is only set for successful payments.
type Transaction struct {
	ID            string            `bson:"_id" json:"-"`
	UserID        string            `bson:"user_id" json:"user_id"`
	TransactionID string            `bson:"transaction_id" json:"transaction_id"`
	Amount        *float64          `bson:"amount,omitempty" json:"amount,omitempty"`
	Status        TransactionStatus `bson:"status" json:"status"`
}
