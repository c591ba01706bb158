package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

type billRepo struct {
	*ownedTable[domain.Bill]
}

// PayBill locks the bill, lets pay mutate it and build the payment
// transaction, then stores both and applies the balance effect atomically.
func (r *billRepo) PayBill(ctx context.Context, userID, id string, pay store.BillPayment) (*domain.Bill, *domain.Transaction, error) {
	var (
		bill *domain.Bill
		txn  *domain.Transaction
	)
	err := r.s.withUser(ctx, userID, func(tx pgx.Tx) error {
		var err error
		bill, err = r.scan(tx.QueryRow(ctx,
			fmt.Sprintf("SELECT %s FROM bills WHERE id = $1 AND user_id = $2 FOR UPDATE", r.selectList()),
			id, userID))
		if err != nil {
			return notFound(err)
		}

		txn, err = pay(bill)
		if err != nil {
			return err
		}
		if txn != nil {
			if err := insertTransaction(ctx, tx, txn); err != nil {
				return err
			}
		}

		sets := make([]string, len(billColumns))
		for i, c := range billColumns {
			sets[i] = fmt.Sprintf("%s = $%d", c, i+3)
		}
		args := append([]any{bill.ID, bill.UserID}, r.values(bill)...)
		return tx.QueryRow(ctx,
			fmt.Sprintf("UPDATE bills SET %s, updated_at = now() WHERE id = $1 AND user_id = $2 RETURNING updated_at", strings.Join(sets, ", ")),
			args...).Scan(&bill.UpdatedAt)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("PayBill: %w", err)
	}
	return bill, txn, nil
}

// ListReminderCandidates returns unpaid bills, across all users, whose
// reminder window has opened and that were not reminded on today.
func (r *billRepo) ListReminderCandidates(ctx context.Context, today time.Time) ([]domain.Bill, error) {
	rows, err := r.s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM bills
			WHERE NOT is_paid
			  AND due_date - reminder_days <= $1::date
			  AND (last_reminded_on IS NULL OR last_reminded_on < $1::date)
			ORDER BY due_date`, r.selectList()),
		today)
	if err != nil {
		return nil, fmt.Errorf("ListReminderCandidates: querying: %w", err)
	}
	bills, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Bill, error) {
		b, err := r.scan(row)
		if err != nil {
			return domain.Bill{}, err
		}
		return *b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListReminderCandidates: scanning: %w", err)
	}
	return bills, nil
}

// MarkReminded records that a reminder for bill id was sent on day.
func (r *billRepo) MarkReminded(ctx context.Context, id string, day time.Time) error {
	if _, err := r.s.pool.Exec(ctx, `UPDATE bills SET last_reminded_on = $2 WHERE id = $1`, id, day); err != nil {
		return fmt.Errorf("MarkReminded: %w", err)
	}
	return nil
}
