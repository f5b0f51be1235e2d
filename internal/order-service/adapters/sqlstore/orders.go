package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

const orderColumns = `id, tenant_id, number, checkout_key, customer, currency,
	subtotal, shipping_total, tax_total, discount_total, grand_total,
	payment_method, payment_status, payment_reference, payment_attempts,
	status, status_reason, shipping_strategy, created_at, updated_at, expired_at`

const subOrderColumns = `id, order_id, number, sequence, vendor_id, vendor_name, currency,
	status, status_reason, subtotal, shipping_amount, tax_amount, discount_amount, grand_total,
	commission_rate, commission_amount, vendor_payout,
	confirmed_at, shipped_at, delivered_at, cancelled_at, payout_settled_at, created_at, updated_at`

const itemColumns = `id, order_id, sub_order_id, vendor_id, product_id, name,
	quantity, unit_price, discount, weight, position`

// customerRecord is the JSON shape of the customer snapshot column.
type customerRecord struct {
	CustomerID string        `json:"customer_id"`
	Name       string        `json:"name"`
	Email      string        `json:"email,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	Address    addressRecord `json:"shipping_address"`
}

type addressRecord struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

func encodeCustomer(c domain.CustomerSnapshot) (string, error) {
	b, err := json.Marshal(customerRecord{
		CustomerID: c.CustomerID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Address:    addressRecord(c.ShippingAddress),
	})
	if err != nil {
		return "", fmt.Errorf("sqlstore: encode customer snapshot: %w", err)
	}
	return string(b), nil
}

func decodeCustomer(raw string) (domain.CustomerSnapshot, error) {
	var rec customerRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.CustomerSnapshot{}, fmt.Errorf("sqlstore: decode customer snapshot: %w", err)
	}
	return domain.CustomerSnapshot{
		CustomerID:      rec.CustomerID,
		Name:            rec.Name,
		Email:           rec.Email,
		Phone:           rec.Phone,
		ShippingAddress: domain.Address(rec.Address),
	}, nil
}

// CreateOrder allocates the order number and inserts the order, its
// sub-orders and its items in one transaction. A reused checkout key returns
// the order that key produced, with created == false.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, bool, error) {
	if order.CheckoutKey != "" {
		existing, err := s.orderByCheckoutKey(ctx, s.db, order.TenantID, order.CheckoutKey)
		if err != nil {
			return nil, false, err
		}
		if existing != "" {
			o, err := s.GetOrder(ctx, existing)
			return o, false, err
		}
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSequence(ctx, tx, order.TenantID, domain.OrderNumberPrefix, order.CreatedAt)
		if err != nil {
			return err
		}
		order.AssignNumber(domain.FormatNumber(domain.OrderNumberPrefix, order.CreatedAt, seq))
		return s.insertOrder(ctx, tx, order)
	})
	if err != nil && order.CheckoutKey != "" && s.dialect.uniqueViolation(err) {
		// A concurrent checkout with the same key won.
		existing, lookupErr := s.orderByCheckoutKey(ctx, s.db, order.TenantID, order.CheckoutKey)
		if lookupErr == nil && existing != "" {
			o, err := s.GetOrder(ctx, existing)
			return o, false, err
		}
	}
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

func (s *Store) orderByCheckoutKey(ctx context.Context, q querier, tenantID, key string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		s.q(`SELECT id FROM orders WHERE tenant_id = ? AND checkout_key = ?`), tenantID, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore: lookup checkout key: %w", err)
	}
	return id, nil
}

func (s *Store) insertOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	customer, err := encodeCustomer(o.Customer)
	if err != nil {
		return err
	}
	d := s.dialect

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO orders (`+orderColumns+`, customer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		o.ID, o.TenantID, o.Number, nullableString(o.CheckoutKey), customer, o.Currency,
		o.Totals.Subtotal, o.Totals.Shipping, o.Totals.Tax, o.Totals.Discount, o.Totals.Grand,
		string(o.PaymentMethod), string(o.PaymentStatus), o.PaymentReference, o.PaymentAttempts,
		string(o.Status), o.StatusReason, string(o.ShippingStrategy),
		d.timeArg(o.CreatedAt), d.timeArg(o.UpdatedAt), d.nullTimeArg(o.ExpiredAt),
		o.Customer.CustomerID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: insert order %s: %w", o.ID, err)
	}

	for _, so := range o.SubOrders {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO sub_orders (`+subOrderColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			so.ID, o.ID, so.Number, so.Sequence, so.VendorID, so.VendorName, so.Currency,
			string(so.Status), so.StatusReason,
			so.Totals.Subtotal, so.Totals.Shipping, so.Totals.Tax, so.Totals.Discount, so.Totals.Grand,
			so.CommissionRate.String(), so.CommissionAmount, so.VendorPayout,
			d.nullTimeArg(so.ConfirmedAt), d.nullTimeArg(so.ShippedAt), d.nullTimeArg(so.DeliveredAt),
			d.nullTimeArg(so.CancelledAt), d.nullTimeArg(so.PayoutSettledAt),
			d.timeArg(so.CreatedAt), d.timeArg(so.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlstore: insert sub-order %s: %w", so.Number, err)
		}
	}

	for _, it := range o.Items {
		var weight any
		if it.Weight.Valid {
			weight = it.Weight.Decimal.String()
		}
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO order_items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			it.ID, o.ID, it.SubOrderID, it.VendorID, it.ProductID, it.Name,
			it.Quantity, it.UnitPrice, it.Discount, weight, it.Position,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: insert item %s: %w", it.ID, err)
		}
	}
	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o           domain.Order
		checkoutKey sql.NullString
		customer    string
	)
	err := row.Scan(
		&o.ID, &o.TenantID, &o.Number, &checkoutKey, &customer, &o.Currency,
		&o.Totals.Subtotal, &o.Totals.Shipping, &o.Totals.Tax, &o.Totals.Discount, &o.Totals.Grand,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentReference, &o.PaymentAttempts,
		&o.Status, &o.StatusReason, &o.ShippingStrategy,
		timeScanner{&o.CreatedAt}, timeScanner{&o.UpdatedAt}, nullTimeScanner{&o.ExpiredAt},
	)
	if err != nil {
		return nil, err
	}
	o.CheckoutKey = checkoutKey.String
	if o.Customer, err = decodeCustomer(customer); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanSubOrder(row rowScanner) (*domain.SubOrder, error) {
	var so domain.SubOrder
	err := row.Scan(
		&so.ID, &so.OrderID, &so.Number, &so.Sequence, &so.VendorID, &so.VendorName, &so.Currency,
		&so.Status, &so.StatusReason,
		&so.Totals.Subtotal, &so.Totals.Shipping, &so.Totals.Tax, &so.Totals.Discount, &so.Totals.Grand,
		&so.CommissionRate, &so.CommissionAmount, &so.VendorPayout,
		nullTimeScanner{&so.ConfirmedAt}, nullTimeScanner{&so.ShippedAt}, nullTimeScanner{&so.DeliveredAt},
		nullTimeScanner{&so.CancelledAt}, nullTimeScanner{&so.PayoutSettledAt},
		timeScanner{&so.CreatedAt}, timeScanner{&so.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func scanItem(row rowScanner) (domain.OrderItem, error) {
	var it domain.OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.SubOrderID, &it.VendorID, &it.ProductID, &it.Name,
		&it.Quantity, &it.UnitPrice, &it.Discount, &it.Weight, &it.Position,
	)
	return it, err
}

// GetOrder loads an order with its sub-orders (by sequence) and items (by
// position). Each sub-order carries its own items too.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(domain.CodeOrderNotFound, "order not found").
			WithMetadata("order_id", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get order %s: %w", orderID, err)
	}

	if o.SubOrders, err = s.subOrders(ctx, `order_id = ? ORDER BY sequence`, orderID); err != nil {
		return nil, err
	}
	if o.Items, err = s.items(ctx, orderID); err != nil {
		return nil, err
	}

	bySub := make(map[string]int, len(o.SubOrders))
	for i, so := range o.SubOrders {
		bySub[so.ID] = i
	}
	for _, it := range o.Items {
		if i, ok := bySub[it.SubOrderID]; ok {
			o.SubOrders[i].Items = append(o.SubOrders[i].Items, it)
		}
	}
	return o, nil
}

func (s *Store) subOrders(ctx context.Context, where string, args ...any) ([]domain.SubOrder, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+subOrderColumns+` FROM sub_orders WHERE `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query sub-orders: %w", err)
	}
	defer rows.Close()

	var out []domain.SubOrder
	for rows.Next() {
		so, err := scanSubOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan sub-order: %w", err)
		}
		out = append(out, *so)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate sub-orders: %w", err)
	}
	return out, nil
}

func (s *Store) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+itemColumns+` FROM order_items WHERE order_id = ? ORDER BY position`), orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query items: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate items: %w", err)
	}
	return out, nil
}

func (s *Store) GetSubOrder(ctx context.Context, subOrderID string) (*domain.SubOrder, error) {
	so, err := scanSubOrder(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+subOrderColumns+` FROM sub_orders WHERE id = ?`), subOrderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(domain.CodeSubOrderNotFound, "sub-order not found").
			WithMetadata("sub_order_id", subOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get sub-order %s: %w", subOrderID, err)
	}
	return so, nil
}

// ListSubOrderStatuses reads the current status of every sibling.
func (s *Store) ListSubOrderStatuses(ctx context.Context, orderID string) ([]domain.SubOrderStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT status FROM sub_orders WHERE order_id = ? ORDER BY sequence`), orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list sub-order statuses: %w", err)
	}
	defer rows.Close()

	var out []domain.SubOrderStatus
	for rows.Next() {
		var st domain.SubOrderStatus
		if err := rows.Scan(&st); err != nil {
			return nil, fmt.Errorf("sqlstore: scan status: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListOrders returns order headers, newest first. Sub-orders and items are
// left empty; GetOrder loads them.
func (s *Store) ListOrders(ctx context.Context, tenantID string, limit int) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+orderColumns+`
		FROM   orders
		WHERE  tenant_id = ?
		ORDER  BY created_at DESC, number DESC
		LIMIT  ?`), tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate orders: %w", err)
	}
	return out, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
