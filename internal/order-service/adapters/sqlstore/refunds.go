package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

const refundColumns = `id, tenant_id, number, order_id, sub_order_id, type, currency,
	requested_amount, approved_amount, reason, note, status,
	visible_to_customer, visible_to_admin, customer_id, customer_name, customer_email,
	requested_by, reviewed_by, review_note, created_at, updated_at, reviewed_at, cancelled_at`

// CreateRefund assigns an RFD number from the tenant's daily sequence and
// inserts the intent.
func (s *Store) CreateRefund(ctx context.Context, r *domain.RefundIntent) error {
	d := s.dialect
	return s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSequence(ctx, tx, r.TenantID, domain.RefundNumberPrefix, r.CreatedAt)
		if err != nil {
			return err
		}
		r.Number = domain.FormatNumber(domain.RefundNumberPrefix, r.CreatedAt, seq)

		var approved any
		if r.ApprovedAmount != nil {
			approved = *r.ApprovedAmount
		}
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO refund_intents (`+refundColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			r.ID, r.TenantID, r.Number, r.OrderID, nullableString(r.SubOrderID), string(r.Type), r.Currency,
			r.RequestedAmount, approved, string(r.Reason), r.Note, string(r.Status),
			r.VisibleToCustomer, r.VisibleToAdmin, r.CustomerID, r.CustomerName, r.CustomerEmail,
			r.RequestedBy, r.ReviewedBy, r.ReviewNote,
			d.timeArg(r.CreatedAt), d.timeArg(r.UpdatedAt), d.nullTimeArg(r.ReviewedAt), d.nullTimeArg(r.CancelledAt),
		)
		if err != nil {
			return fmt.Errorf("sqlstore: insert refund intent %s: %w", r.ID, err)
		}
		return nil
	})
}

func scanRefund(row rowScanner) (*domain.RefundIntent, error) {
	var (
		r          domain.RefundIntent
		subOrderID sql.NullString
		approved   sql.NullInt64
	)
	err := row.Scan(
		&r.ID, &r.TenantID, &r.Number, &r.OrderID, &subOrderID, &r.Type, &r.Currency,
		&r.RequestedAmount, &approved, &r.Reason, &r.Note, &r.Status,
		&r.VisibleToCustomer, &r.VisibleToAdmin, &r.CustomerID, &r.CustomerName, &r.CustomerEmail,
		&r.RequestedBy, &r.ReviewedBy, &r.ReviewNote,
		timeScanner{&r.CreatedAt}, timeScanner{&r.UpdatedAt},
		nullTimeScanner{&r.ReviewedAt}, nullTimeScanner{&r.CancelledAt},
	)
	if err != nil {
		return nil, err
	}
	r.SubOrderID = subOrderID.String
	if approved.Valid {
		v := approved.Int64
		r.ApprovedAmount = &v
	}
	return &r, nil
}

func (s *Store) GetRefund(ctx context.Context, refundID string) (*domain.RefundIntent, error) {
	r, err := scanRefund(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+refundColumns+` FROM refund_intents WHERE id = ?`), refundID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(domain.CodeRefundNotFound, "refund intent not found").
			WithMetadata("refund_id", refundID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get refund intent %s: %w", refundID, err)
	}
	return r, nil
}

// ReviewRefund applies the decision only while the intent is PENDING.
func (s *Store) ReviewRefund(ctx context.Context, rv ports.RefundReview) (bool, error) {
	var approved any
	if rv.ApprovedAmount != nil {
		approved = *rv.ApprovedAmount
	}
	ts := s.dialect.timeArg(rv.At)
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE refund_intents
		SET    status = ?, approved_amount = ?, reviewed_by = ?, review_note = ?,
		       reviewed_at = ?, updated_at = ?
		WHERE  id = ? AND status = 'PENDING'`),
		string(rv.Status), approved, rv.ReviewedBy, rv.Note, ts, ts, rv.RefundID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: review refund intent %s: %w", rv.RefundID, err)
	}
	return affected(res)
}

// CancelRefund cancels the intent only while it is PENDING.
func (s *Store) CancelRefund(ctx context.Context, refundID string, at time.Time) (bool, error) {
	ts := s.dialect.timeArg(at)
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE refund_intents
		SET    status = 'CANCELLED', cancelled_at = ?, updated_at = ?
		WHERE  id = ? AND status = 'PENDING'`),
		ts, ts, refundID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: cancel refund intent %s: %w", refundID, err)
	}
	return affected(res)
}

// ListRefunds filters by the non-empty fields of f. The audience selects
// which visibility flag must be set.
func (s *Store) ListRefunds(ctx context.Context, f ports.RefundFilter) ([]domain.RefundIntent, error) {
	where := `1 = 1`
	var args []any
	if f.TenantID != "" {
		where += ` AND tenant_id = ?`
		args = append(args, f.TenantID)
	}
	if f.OrderID != "" {
		where += ` AND order_id = ?`
		args = append(args, f.OrderID)
	}
	if f.CustomerID != "" {
		where += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	switch f.Audience {
	case domain.AudienceCustomer:
		where += ` AND visible_to_customer = ?`
		args = append(args, true)
	case domain.AudienceAdmin:
		where += ` AND visible_to_admin = ?`
		args = append(args, true)
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+refundColumns+` FROM refund_intents WHERE `+where+` ORDER BY created_at DESC, number DESC`),
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list refund intents: %w", err)
	}
	defer rows.Close()

	var out []domain.RefundIntent
	for rows.Next() {
		r, err := scanRefund(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan refund intent: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate refund intents: %w", err)
	}
	return out, nil
}
