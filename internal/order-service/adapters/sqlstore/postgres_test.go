package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

func mockPostgres(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func TestDollarPlaceholders(t *testing.T) {
	assert.Equal(t,
		"UPDATE t SET a = $1 WHERE id = $2 AND b IN ($3, $4)",
		dollarPlaceholders("UPDATE t SET a = ? WHERE id = ? AND b IN (?, ?)"))
	assert.Equal(t, "SELECT 1", dollarPlaceholders("SELECT 1"))
}

func TestUniqueViolation(t *testing.T) {
	assert.True(t, Postgres.uniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, Postgres.uniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, Postgres.uniqueViolation(errors.New("boom")))
	assert.False(t, SQLite.uniqueViolation(&pq.Error{Code: "23505"}))
}

func TestPostgresExpireOrderRunsInOneTransaction(t *testing.T) {
	s, mock := mockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders\s+SET\s+status = 'EXPIRED', status_reason = \$1, expired_at = \$2, updated_at = \$3\s+WHERE\s+id = \$4`).
		WithArgs("payment window elapsed", day, day, "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sub_orders\s+SET\s+status = 'CANCELLED'.*WHERE\s+order_id = \$4`).
		WithArgs("payment window elapsed", day, day, "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ok, err := s.ExpireOrder(context.Background(), "ord-1", "payment window elapsed", day)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExpireOrderLostRaceSkipsSubOrders(t *testing.T) {
	s, mock := mockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := s.ExpireOrder(context.Background(), "ord-1", "payment window elapsed", day)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExpireOrderRollsBackOnFailure(t *testing.T) {
	s, mock := mockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sub_orders`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	ok, err := s.ExpireOrder(context.Background(), "ord-1", "payment window elapsed", day)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateOrderReplaysAfterUniqueViolation(t *testing.T) {
	s, mock := mockPostgres(t)
	order := sampleOrder("ord-2", "t1", "chk-1", day)

	mock.ExpectQuery(`SELECT id FROM orders WHERE tenant_id = \$1 AND checkout_key = \$2`).
		WithArgs("t1", "chk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO number_sequences`).
		WithArgs("t1", domain.OrderNumberPrefix, "20261016").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ux_orders_tenant_checkout_key"})
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT id FROM orders WHERE tenant_id = \$1 AND checkout_key = \$2`).
		WithArgs("t1", "chk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ord-1"))
	mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "number", "checkout_key", "customer", "currency",
			"subtotal", "shipping_total", "tax_total", "discount_total", "grand_total",
			"payment_method", "payment_status", "payment_reference", "payment_attempts",
			"status", "status_reason", "shipping_strategy", "created_at", "updated_at", "expired_at",
		}).AddRow(
			"ord-1", "t1", "ORD-20261016-0001", "chk-1", `{"customer_id":"cus-1","name":"Ada Obi","shipping_address":{"line1":"","city":"Lagos","country":"NG"}}`, "NGN",
			10000, 1000, 0, 0, 11000,
			"CARD", "PENDING", "", 0,
			"SPLIT", "", "PROPORTIONAL", day, day, nil,
		))
	mock.ExpectQuery(`FROM sub_orders WHERE order_id = \$1 ORDER BY sequence`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM order_items WHERE order_id = \$1 ORDER BY position`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, created, err := s.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ord-1", got.ID)
	assert.Equal(t, "ORD-20261016-0001", got.Number)
	assert.Equal(t, "Lagos", got.Customer.ShippingAddress.City)
	assert.True(t, got.CreatedAt.Equal(day))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRefundsBuildsFilter(t *testing.T) {
	s, mock := mockPostgres(t)

	mock.ExpectQuery(`FROM refund_intents WHERE 1 = 1 AND tenant_id = \$1 AND customer_id = \$2 AND visible_to_customer = \$3 ORDER BY created_at DESC`).
		WithArgs("t1", "cus-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := s.ListRefunds(context.Background(), ports.RefundFilter{
		TenantID: "t1", CustomerID: "cus-1", Audience: domain.AudienceCustomer,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkPayoutsSettledExpandsIDs(t *testing.T) {
	s, mock := mockPostgres(t)

	mock.ExpectExec(`UPDATE sub_orders SET payout_settled_at = \$1.*id IN \(\$3, \$4\)`).
		WithArgs(day, "v1", "so-1", "so-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.MarkPayoutsSettled(context.Background(), "v1", []string{"so-1", "so-2"}, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
