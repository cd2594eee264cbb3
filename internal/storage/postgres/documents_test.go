package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// arrayConverter пропускает []string как есть: pgx кодирует его в text[].
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if ids, ok := v.([]string); ok {
		return ids, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

type idsArg []string

func (a idsArg) Match(v driver.Value) bool {
	ids, ok := v.([]string)
	return ok && slices.Equal(ids, a)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewStore(db, WithOpTimeout(time.Second)), mock
}

func TestBranchRepository_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM branches WHERE id = $1`)).
		WithArgs("branch-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(
			[]byte(`{"name":"Oslo","paymentInfo":{"responsible":true,"rentPeriods":[{"type":"semester","percentage":"0.5"}]}}`),
		))

	branch, err := NewBranchRepository(store).Get(context.Background(), "branch-1")
	if err != nil {
		t.Fatalf("get branch: %v", err)
	}
	if branch.ID != "branch-1" {
		t.Fatalf("expected id from row key, got %q", branch.ID)
	}
	period, ok := branch.RentPeriod("semester")
	if !branch.PaymentInfo.Responsible || !ok || !period.Percentage.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("unexpected branch %+v", branch)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestItemRepository_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM items WHERE id = $1`)).
		WithArgs("item-404").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	_, err := NewItemRepository(store).Get(context.Background(), "item-404")

	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || notFound.Entity != domain.EntityItem || notFound.ID != "item-404" {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestOrderRepository_GetDecodeError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM orders WHERE id = $1`)).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"amount": "not-a-number"}`)))

	_, err := NewOrderRepository(store).Get(context.Background(), "order-1")
	if err == nil || domain.IsNotFound(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestRepository_MissingTableHint(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM deliveries WHERE id = $1`)).
		WithArgs("d-1").
		WillReturnError(&pgconn.PgError{Code: pgUndefinedTable, Message: `relation "deliveries" does not exist`})

	_, err := NewDeliveryRepository(store).Get(context.Background(), "d-1")
	if err == nil || !strings.Contains(err.Error(), "run migrations") {
		t.Fatalf("expected migration hint, got %v", err)
	}
	if domain.ErrorKind(err) != domain.KindInternal {
		t.Fatalf("expected internal kind, got %s", domain.ErrorKind(err))
	}
}

func TestPaymentRepository_GetManyKeepsRequestedOrder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, body FROM payments WHERE id = ANY($1)`)).
		WithArgs(idsArg{"p-2", "p-1"}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).
			AddRow("p-1", []byte(`{"method":"card","amount":"120","confirmed":true}`)).
			AddRow("p-2", []byte(`{"method":"vipps","amount":"80","confirmed":false}`)))

	payments, err := NewPaymentRepository(store).GetMany(context.Background(), []string{"p-2", "p-1"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(payments) != 2 || payments[0].ID != "p-2" || payments[1].ID != "p-1" {
		t.Fatalf("unexpected payments %+v", payments)
	}
	if !payments[0].Amount.Equal(decimal.NewFromInt(80)) || payments[0].Confirmed {
		t.Fatalf("unexpected first payment %+v", payments[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentRepository_GetManyMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, body FROM payments WHERE id = ANY($1)`)).
		WithArgs(idsArg{"p-1", "p-404"}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).
			AddRow("p-1", []byte(`{"amount":"120","confirmed":true}`)))

	_, err := NewPaymentRepository(store).GetMany(context.Background(), []string{"p-1", "p-404"})

	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || notFound.ID != "p-404" {
		t.Fatalf("expected p-404 not found, got %v", err)
	}
}

func TestPaymentRepository_GetManyEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	payments, err := NewPaymentRepository(store).GetMany(context.Background(), nil)
	if err != nil || len(payments) != 0 {
		t.Fatalf("expected empty result, got %v %v", payments, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestStore_Stores(t *testing.T) {
	store, _ := newMockStore(t)
	stores := store.Stores()

	if stores.Branches == nil || stores.Items == nil || stores.CustomerItems == nil ||
		stores.Orders == nil || stores.Deliveries == nil || stores.Payments == nil {
		t.Fatalf("all repositories must be set: %+v", stores)
	}
}

func TestStore_PingWithMock(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	if err := NewStore(db).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
