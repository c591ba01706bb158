// Package bigquery mirrors transactions into a BigQuery warehouse table for
// reporting.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

// TransactionsTable is the warehouse table name.
const TransactionsTable = "transactions"

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	AccountID      bigquery.NullString `bigquery:"account_id"`
	ToAccountID    bigquery.NullString `bigquery:"to_account_id"`
	CategoryID     bigquery.NullString `bigquery:"category_id"`
	CategoryName   bigquery.NullString `bigquery:"category_name"`
	FamilyMemberID bigquery.NullString `bigquery:"family_member_id"`

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, partitioning column

	Type   string   `bigquery:"type"`
	Amount *big.Rat `bigquery:"amount"` // NUMERIC, always positive
	// SignedAmount is negative for expenses, which makes SUM() give the net.
	SignedAmount *big.Rat `bigquery:"signed_amount"`
	Currency     string   `bigquery:"currency"`

	Description string              `bigquery:"description"`
	Merchant    bigquery.NullString `bigquery:"merchant"`
	Source      string              `bigquery:"source"`

	AICategorized bool     `bigquery:"ai_categorized"`
	Tags          []string `bigquery:"tags"` // REPEATED STRING

	CreatedTS  time.Time `bigquery:"created_ts"`
	UpdatedTS  time.Time `bigquery:"updated_ts"`
	ExportedTS time.Time `bigquery:"exported_ts"`
}

func nullString(p *string) bigquery.NullString {
	if p == nil || *p == "" {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *p, Valid: true}
}

// ToRow converts a transaction into a warehouse row.
func ToRow(tx domain.Transaction, exportedAt time.Time) *TransactionRow {
	amount := tx.Amount.Rat()
	signed := new(big.Rat).Set(amount)
	if tx.Type == domain.TransactionExpense {
		signed.Neg(signed)
	} else if tx.Type == domain.TransactionTransfer {
		signed.SetInt64(0)
	}
	tags := tx.Tags
	if tags == nil {
		tags = []string{}
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		AccountID:       nullString(tx.AccountID),
		ToAccountID:     nullString(tx.ToAccountID),
		CategoryID:      nullString(tx.CategoryID),
		CategoryName:    nullString(&tx.CategoryName),
		FamilyMemberID:  nullString(tx.FamilyMemberID),
		TransactionDate: civil.DateOf(tx.OccurredOn),
		Type:            string(tx.Type),
		Amount:          amount,
		SignedAmount:    signed,
		Currency:        tx.Currency,
		Description:     tx.Description,
		Merchant:        nullString(&tx.Merchant),
		Source:          string(tx.Source),
		AICategorized:   tx.AICategorized,
		Tags:            tags,
		CreatedTS:       tx.CreatedAt,
		UpdatedTS:       tx.UpdatedAt,
		ExportedTS:      exportedAt,
	}
}
