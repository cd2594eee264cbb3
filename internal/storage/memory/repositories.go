// Package memory реализует in-memory документное хранилище для локального запуска и тестов.
package memory

import (
	"context"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// BranchRepository хранит филиалы.
type BranchRepository struct{ docs *collection[domain.Branch] }

// NewBranchRepository возвращает пустой репозиторий филиалов.
func NewBranchRepository() *BranchRepository {
	return &BranchRepository{docs: newCollection[domain.Branch](domain.EntityBranch)}
}

// Get возвращает филиал или *domain.NotFoundError.
func (r *BranchRepository) Get(ctx context.Context, id string) (domain.Branch, error) {
	return r.docs.get(ctx, id)
}

// Put сохраняет или перезаписывает филиал.
func (r *BranchRepository) Put(branch domain.Branch) { r.docs.put(branch.ID, branch) }

// ItemRepository хранит прайс-лист.
type ItemRepository struct{ docs *collection[domain.Item] }

func NewItemRepository() *ItemRepository {
	return &ItemRepository{docs: newCollection[domain.Item](domain.EntityItem)}
}

func (r *ItemRepository) Get(ctx context.Context, id string) (domain.Item, error) {
	return r.docs.get(ctx, id)
}

func (r *ItemRepository) Put(item domain.Item) { r.docs.put(item.ID, item) }

// CustomerItemRepository хранит историю аренды экземпляров.
type CustomerItemRepository struct{ docs *collection[domain.CustomerItem] }

func NewCustomerItemRepository() *CustomerItemRepository {
	return &CustomerItemRepository{docs: newCollection[domain.CustomerItem](domain.EntityCustomerItem)}
}

func (r *CustomerItemRepository) Get(ctx context.Context, id string) (domain.CustomerItem, error) {
	return r.docs.get(ctx, id)
}

func (r *CustomerItemRepository) Put(customerItem domain.CustomerItem) {
	r.docs.put(customerItem.ID, customerItem)
}

// OrderRepository хранит ранее сохранённые заказы.
type OrderRepository struct{ docs *collection[domain.Order] }

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{docs: newCollection[domain.Order](domain.EntityOrder)}
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.docs.get(ctx, id)
}

func (r *OrderRepository) Put(order domain.Order) { r.docs.put(order.ID, order) }

// DeliveryRepository хранит доставки.
type DeliveryRepository struct{ docs *collection[domain.Delivery] }

func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{docs: newCollection[domain.Delivery](domain.EntityDelivery)}
}

func (r *DeliveryRepository) Get(ctx context.Context, id string) (domain.Delivery, error) {
	return r.docs.get(ctx, id)
}

func (r *DeliveryRepository) Put(delivery domain.Delivery) { r.docs.put(delivery.ID, delivery) }

// PaymentRepository хранит платежи.
type PaymentRepository struct{ docs *collection[domain.Payment] }

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{docs: newCollection[domain.Payment](domain.EntityPayment)}
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (domain.Payment, error) {
	return r.docs.get(ctx, id)
}

// GetMany возвращает платежи в порядке ids.
func (r *PaymentRepository) GetMany(ctx context.Context, ids []string) ([]domain.Payment, error) {
	return r.docs.getMany(ctx, ids)
}

func (r *PaymentRepository) Put(payment domain.Payment) { r.docs.put(payment.ID, payment) }

var (
	_ domain.BranchRepository       = (*BranchRepository)(nil)
	_ domain.ItemRepository         = (*ItemRepository)(nil)
	_ domain.CustomerItemRepository = (*CustomerItemRepository)(nil)
	_ domain.OrderRepository        = (*OrderRepository)(nil)
	_ domain.DeliveryRepository     = (*DeliveryRepository)(nil)
	_ domain.PaymentRepository      = (*PaymentRepository)(nil)
)
