package finance

import (
	"context"
	"fmt"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
)

// BillPayment is the outcome of paying a bill.
type BillPayment struct {
	Bill        *domain.Bill        `json:"bill"`
	Transaction *domain.Transaction `json:"transaction"`
}

// PayBill records an expense with source=bill for the bill amount and marks
// the bill paid. Recurring bills roll their due date forward by one period
// and become unpaid again.
func (s *Service) PayBill(ctx context.Context, userID, billID string, info RequestInfo) (*BillPayment, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("PayBill: loading user: %w", err)
	}
	day := today(s.now())

	bill, tx, err := s.repo.Bills().PayBill(ctx, userID, billID, func(b *domain.Bill) (*domain.Transaction, error) {
		if b.IsPaid {
			return nil, invalid("bill", "%q is already paid", b.Name)
		}
		tx := &domain.Transaction{
			UserID:      userID,
			AccountID:   b.AccountID,
			CategoryID:  b.CategoryID,
			Type:        domain.TransactionExpense,
			Amount:      b.Amount,
			Currency:    domain.NormalizeCurrency(user.Currency),
			Description: "Bill payment: " + b.Name,
			OccurredOn:  day,
			Source:      domain.SourceBill,
		}

		paid := day
		b.LastPaidOn = &paid
		if next, ok := b.Frequency.Next(b.DueDate); ok {
			b.DueDate = next
			b.IsPaid = false
			b.LastRemindedOn = nil
		} else {
			b.IsPaid = true
		}
		return tx, nil
	})
	if err != nil {
		return nil, err
	}

	s.Track(ctx, userID, "bill.paid", "bill", bill.ID, map[string]any{
		"amount": bill.Amount.String(), "transaction_id": tx.ID,
	}, info)
	s.Publish(userID, "bills", realtime.ActionUpdate, bill)
	s.Publish(userID, "transactions", realtime.ActionInsert, tx)
	s.publishAccounts(ctx, userID, tx.BalanceEffects())
	s.checkBudgets(ctx, userID, tx, nil)
	return &BillPayment{Bill: bill, Transaction: tx}, nil
}
