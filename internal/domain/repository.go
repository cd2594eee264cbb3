package domain

import "context"

// Entity: вид сущности документного хранилища.
type Entity string

const (
	EntityBranch       Entity = "branch"
	EntityItem         Entity = "item"
	EntityCustomerItem Entity = "customerItem"
	EntityOrder        Entity = "order"
	EntityDelivery     Entity = "delivery"
	EntityPayment      Entity = "payment"
)

// Репозитории ниже только читают: движок валидации ничего не пишет.
// Get возвращает *NotFoundError, если записи нет.

// BranchRepository читает филиалы.
type BranchRepository interface {
	Get(ctx context.Context, id string) (Branch, error)
}

// ItemRepository читает прайс-лист.
type ItemRepository interface {
	Get(ctx context.Context, id string) (Item, error)
}

// CustomerItemRepository читает историю аренды экземпляров.
type CustomerItemRepository interface {
	Get(ctx context.Context, id string) (CustomerItem, error)
}

// OrderRepository читает ранее сохранённые заказы (для movedFromOrder).
type OrderRepository interface {
	Get(ctx context.Context, id string) (Order, error)
}

// DeliveryRepository читает доставки.
type DeliveryRepository interface {
	Get(ctx context.Context, id string) (Delivery, error)
}

// PaymentRepository читает платежи.
type PaymentRepository interface {
	Get(ctx context.Context, id string) (Payment, error)
	// GetMany возвращает платежи в порядке ids; если хотя бы одного нет, возвращает *NotFoundError.
	GetMany(ctx context.Context, ids []string) ([]Payment, error)
}

// Stores объединяет все источники, нужные конвейеру валидации.
type Stores struct {
	Branches      BranchRepository
	Items         ItemRepository
	CustomerItems CustomerItemRepository
	Orders        OrderRepository
	Deliveries    DeliveryRepository
	Payments      PaymentRepository
}
