package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/formyfuture/internal/models"
	"github.com/mmynk/formyfuture/internal/storage"
)

const paymentColumns = "id, to_id, by_id, amount, created_at, kind, proposal_id, reference"

// GetPayment retrieves a payment by id.
func (t *tx) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// PutPayment inserts a payment record.
func (t *tx) PutPayment(ctx context.Context, p *models.Payment) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO payments ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.To, p.By, toDB(p.Amount), p.CreatedAt, p.Kind, p.ProposalID, p.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ListPayments returns every payment in id order.
func (t *tx) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT "+paymentColumns+" FROM payments ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// CountPayments returns the number of payments recorded.
func (t *tx) CountPayments(ctx context.Context) (int64, error) {
	return t.count(ctx, "payments")
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var amount int64
	if err := row.Scan(&p.ID, &p.To, &p.By, &amount, &p.CreatedAt, &p.Kind, &p.ProposalID, &p.Reference); err != nil {
		return nil, err
	}
	p.Amount = fromDB(amount)
	return p, nil
}
