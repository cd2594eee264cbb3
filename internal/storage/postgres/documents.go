package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// pgUndefinedTable: SQLSTATE отсутствующей таблицы: схема не накатана.
const pgUndefinedTable = "42P01"

// documentTable читает JSONB-документы одного вида сущности.
type documentTable[T any] struct {
	db        *sql.DB
	table     string
	entity    domain.Entity
	opTimeout time.Duration
	// setID переносит ключ строки в документ: тело может не содержать id.
	setID func(doc *T, id string)
}

func newDocumentTable[T any](store *Store, table string, entity domain.Entity, setID func(*T, string)) documentTable[T] {
	return documentTable[T]{
		db:        store.DB(),
		table:     table,
		entity:    entity,
		opTimeout: store.opTimeout,
		setID:     setID,
	}
}

func (t documentTable[T]) get(ctx context.Context, id string) (T, error) {
	var doc T

	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	var body []byte
	err := t.db.QueryRowContext(ctx, `SELECT body FROM `+t.table+` WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doc, domain.NewNotFoundError(t.entity, id)
		}
		return doc, t.wrap("select", err)
	}

	if err := json.Unmarshal(body, &doc); err != nil {
		return doc, fmt.Errorf("decode %s %q: %w", t.entity, id, err)
	}
	t.setID(&doc, id)
	return doc, nil
}

// getMany возвращает документы в порядке ids или *domain.NotFoundError на первом отсутствующем.
func (t documentTable[T]) getMany(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	rows, err := t.db.QueryContext(ctx, `SELECT id, body FROM `+t.table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, t.wrap("select many", err)
	}
	defer rows.Close()

	found := make(map[string]T, len(ids))
	for rows.Next() {
		var (
			id   string
			body []byte
			doc  T
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.entity, err)
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", t.entity, id, err)
		}
		t.setID(&doc, id)
		found[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.entity, err)
	}

	result := make([]T, 0, len(ids))
	for _, id := range ids {
		doc, ok := found[id]
		if !ok {
			return nil, domain.NewNotFoundError(t.entity, id)
		}
		result = append(result, doc)
	}
	return result, nil
}

func (t documentTable[T]) wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%s %s: table %s is missing, run migrations: %w", op, t.entity, t.table, err)
	}
	return fmt.Errorf("%s %s: %w", op, t.entity, err)
}

type branchRepository struct{ docs documentTable[domain.Branch] }

// NewBranchRepository создаёт PostgreSQL-реализацию BranchRepository.
func NewBranchRepository(store *Store) domain.BranchRepository {
	return &branchRepository{docs: newDocumentTable(store, "branches", domain.EntityBranch,
		func(b *domain.Branch, id string) { b.ID = id })}
}

func (r *branchRepository) Get(ctx context.Context, id string) (domain.Branch, error) {
	return r.docs.get(ctx, id)
}

type itemRepository struct{ docs documentTable[domain.Item] }

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{docs: newDocumentTable(store, "items", domain.EntityItem,
		func(i *domain.Item, id string) { i.ID = id })}
}

func (r *itemRepository) Get(ctx context.Context, id string) (domain.Item, error) {
	return r.docs.get(ctx, id)
}

type customerItemRepository struct{ docs documentTable[domain.CustomerItem] }

// NewCustomerItemRepository создаёт PostgreSQL-реализацию CustomerItemRepository.
func NewCustomerItemRepository(store *Store) domain.CustomerItemRepository {
	return &customerItemRepository{docs: newDocumentTable(store, "customer_items", domain.EntityCustomerItem,
		func(c *domain.CustomerItem, id string) { c.ID = id })}
}

func (r *customerItemRepository) Get(ctx context.Context, id string) (domain.CustomerItem, error) {
	return r.docs.get(ctx, id)
}

type orderRepository struct{ docs documentTable[domain.Order] }

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{docs: newDocumentTable(store, "orders", domain.EntityOrder,
		func(o *domain.Order, id string) { o.ID = id })}
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.docs.get(ctx, id)
}

type deliveryRepository struct{ docs documentTable[domain.Delivery] }

// NewDeliveryRepository создаёт PostgreSQL-реализацию DeliveryRepository.
func NewDeliveryRepository(store *Store) domain.DeliveryRepository {
	return &deliveryRepository{docs: newDocumentTable(store, "deliveries", domain.EntityDelivery,
		func(d *domain.Delivery, id string) { d.ID = id })}
}

func (r *deliveryRepository) Get(ctx context.Context, id string) (domain.Delivery, error) {
	return r.docs.get(ctx, id)
}

type paymentRepository struct{ docs documentTable[domain.Payment] }

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{docs: newDocumentTable(store, "payments", domain.EntityPayment,
		func(p *domain.Payment, id string) { p.ID = id })}
}

func (r *paymentRepository) Get(ctx context.Context, id string) (domain.Payment, error) {
	return r.docs.get(ctx, id)
}

func (r *paymentRepository) GetMany(ctx context.Context, ids []string) ([]domain.Payment, error) {
	return r.docs.getMany(ctx, ids)
}

var (
	_ domain.BranchRepository       = (*branchRepository)(nil)
	_ domain.ItemRepository         = (*itemRepository)(nil)
	_ domain.CustomerItemRepository = (*customerItemRepository)(nil)
	_ domain.OrderRepository        = (*orderRepository)(nil)
	_ domain.DeliveryRepository     = (*deliveryRepository)(nil)
	_ domain.PaymentRepository      = (*paymentRepository)(nil)
)
