package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

// nextSequence increments and returns the (tenant, scope, day) counter.
// Inside a transaction the upsert holds the counter row until commit, so
// two writers never receive the same value.
func (s *Store) nextSequence(ctx context.Context, q querier, tenantID, scope string, at time.Time) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, s.q(`
		INSERT INTO number_sequences (tenant_id, scope, day, last_value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (tenant_id, scope, day)
		DO UPDATE SET last_value = number_sequences.last_value + 1
		RETURNING last_value`),
		tenantID, scope, domain.DayKey(at),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: next %s sequence for tenant %q: %w", scope, tenantID, err)
	}
	return n, nil
}
