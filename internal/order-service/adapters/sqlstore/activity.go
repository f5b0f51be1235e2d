package sqlstore

import (
	"context"
	"fmt"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/orderlog"
)

// Append inserts one activity row. The table is append-only.
func (s *Store) Append(ctx context.Context, e *orderlog.Entry) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO order_activity
			(order_id, action, actor, detail, trace_id, span_id, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`),
		e.OrderID, string(e.Action), e.Actor, e.Detail, e.TraceID, e.SpanID, s.dialect.timeArg(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: append activity for %q: %w", e.OrderID, err)
	}
	return nil
}

// List returns the order's activity oldest first.
func (s *Store) List(ctx context.Context, orderID string) ([]orderlog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT order_id, action, actor, detail, trace_id, span_id, created_at
		FROM   order_activity
		WHERE  order_id = ?
		ORDER  BY id`), orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list activity for %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []orderlog.Entry
	for rows.Next() {
		var e orderlog.Entry
		if err := rows.Scan(&e.OrderID, &e.Action, &e.Actor, &e.Detail, &e.TraceID, &e.SpanID, timeScanner{&e.CreatedAt}); err != nil {
			return nil, fmt.Errorf("sqlstore: scan activity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
