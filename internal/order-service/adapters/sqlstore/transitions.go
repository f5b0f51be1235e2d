package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

// stampColumn is the timestamp column recorded on entering a status.
var stampColumn = map[domain.SubOrderStatus]string{
	domain.SubOrderConfirmed: "confirmed_at",
	domain.SubOrderShipped:   "shipped_at",
	domain.SubOrderDelivered: "delivered_at",
	domain.SubOrderCancelled: "cancelled_at",
}

// TransitionSubOrder applies t only while the sub-order is still in t.From.
func (s *Store) TransitionSubOrder(ctx context.Context, t ports.SubOrderTransition) (bool, error) {
	set := `status = ?, status_reason = ?, updated_at = ?`
	args := []any{string(t.To), t.Reason, s.dialect.timeArg(t.At)}
	if col, ok := stampColumn[t.To]; ok {
		set += `, ` + col + ` = ?`
		args = append(args, s.dialect.timeArg(t.At))
	}
	args = append(args, t.SubOrderID, string(t.From))

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE sub_orders SET `+set+` WHERE id = ? AND status = ?`), args...)
	if err != nil {
		return false, fmt.Errorf("sqlstore: transition sub-order %s: %w", t.SubOrderID, err)
	}
	return affected(res)
}

// SetDerivedStatus never overwrites EXPIRED.
func (s *Store) SetDerivedStatus(ctx context.Context, orderID string, status domain.ParentStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE orders SET status = ?, updated_at = ?
		WHERE  id = ? AND status <> 'EXPIRED'`),
		string(status), s.dialect.timeArg(at), orderID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: set status of order %s: %w", orderID, err)
	}
	return affected(res)
}

// SaveShippingAllocation overwrites the shipping split and rebalances grand
// totals on the order and every sub-order in one transaction.
func (s *Store) SaveShippingAllocation(ctx context.Context, u ports.ShippingUpdate) error {
	at := s.dialect.timeArg(u.At)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, subID := range slices.Sorted(maps.Keys(u.Amounts)) {
			amount := u.Amounts[subID]
			_, err := tx.ExecContext(ctx, s.q(`
				UPDATE sub_orders
				SET    shipping_amount = ?,
				       grand_total = subtotal + ? + tax_amount - discount_amount,
				       updated_at = ?
				WHERE  id = ? AND order_id = ?`),
				amount, amount, at, subID, u.OrderID)
			if err != nil {
				return fmt.Errorf("sqlstore: update shipping of sub-order %s: %w", subID, err)
			}
		}
		_, err := tx.ExecContext(ctx, s.q(`
			UPDATE orders
			SET    shipping_total = ?,
			       grand_total = subtotal + ? + tax_total - discount_total,
			       shipping_strategy = ?,
			       updated_at = ?
			WHERE  id = ?`),
			u.Total, u.Total, string(u.Strategy), at, u.OrderID)
		if err != nil {
			return fmt.Errorf("sqlstore: update shipping of order %s: %w", u.OrderID, err)
		}
		return nil
	})
}

// ExpireOrder marks the order EXPIRED and cancels its open sub-orders with
// the same reason, atomically. The order update is conditional on the order
// being open and unpaid, so of two concurrent expiries only one reports true.
func (s *Store) ExpireOrder(ctx context.Context, orderID, reason string, at time.Time) (bool, error) {
	ts := s.dialect.timeArg(at)
	expired := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE orders
			SET    status = 'EXPIRED', status_reason = ?, expired_at = ?, updated_at = ?
			WHERE  id = ?
			  AND  status IN ('PENDING', 'SPLIT')
			  AND  payment_status NOT IN ('PAID', 'CAPTURED')`),
			reason, ts, ts, orderID)
		if err != nil {
			return fmt.Errorf("sqlstore: expire order %s: %w", orderID, err)
		}
		if expired, err = affected(res); err != nil || !expired {
			return err
		}

		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE sub_orders
			SET    status = 'CANCELLED', status_reason = ?, cancelled_at = ?, updated_at = ?
			WHERE  order_id = ? AND status NOT IN ('DELIVERED', 'CANCELLED')`),
			reason, ts, ts, orderID)
		if err != nil {
			return fmt.Errorf("sqlstore: cancel sub-orders of %s: %w", orderID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// RecordPaymentAttempt stores a new initiation reference while the order is
// open and not yet paid.
func (s *Store) RecordPaymentAttempt(ctx context.Context, orderID, reference string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE orders
		SET    payment_reference = ?, payment_status = 'PENDING',
		       payment_attempts = payment_attempts + 1, updated_at = ?
		WHERE  id = ?
		  AND  status IN ('PENDING', 'SPLIT')
		  AND  payment_status IN ('PENDING', 'FAILED')`),
		reference, s.dialect.timeArg(at), orderID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: record payment attempt on %s: %w", orderID, err)
	}
	return affected(res)
}

func (s *Store) SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE orders SET payment_status = ?, updated_at = ?
		WHERE  id = ? AND status NOT IN ('EXPIRED', 'CANCELLED')`),
		string(status), s.dialect.timeArg(at), orderID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: set payment status of %s: %w", orderID, err)
	}
	return affected(res)
}

// ListExpirable returns the open, unpaid, prepaid orders of a tenant created
// before the cutoff, oldest first.
func (s *Store) ListExpirable(ctx context.Context, tenantID string, createdBefore time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id FROM orders
		WHERE  tenant_id = ?
		  AND  status IN ('PENDING', 'SPLIT')
		  AND  payment_status IN ('PENDING', 'FAILED')
		  AND  payment_method <> 'CASH_ON_DELIVERY'
		  AND  created_at < ?
		ORDER  BY created_at, id`),
		tenantID, s.dialect.timeArg(createdBefore))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list expirable orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlstore: scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPayableSubOrders returns the vendor's delivered sub-orders that were
// not yet marked as paid out, in delivery order.
func (s *Store) ListPayableSubOrders(ctx context.Context, vendorID string) ([]domain.SubOrder, error) {
	return s.subOrders(ctx,
		`vendor_id = ? AND status = 'DELIVERED' AND payout_settled_at IS NULL ORDER BY delivered_at, id`,
		vendorID)
}

func (s *Store) MarkPayoutsSettled(ctx context.Context, vendorID string, subOrderIDs []string, at time.Time) (int64, error) {
	if len(subOrderIDs) == 0 {
		return 0, nil
	}
	args := []any{s.dialect.timeArg(at), vendorID}
	for _, id := range subOrderIDs {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE sub_orders SET payout_settled_at = ?
		WHERE  vendor_id = ?
		  AND  status = 'DELIVERED'
		  AND  payout_settled_at IS NULL
		  AND  id IN (`+placeholders(len(subOrderIDs))+`)`), args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: mark payouts settled for %s: %w", vendorID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	return n, nil
}
