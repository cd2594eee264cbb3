package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// Snapshot: содержимое всех коллекций, например из seed-файла.
type Snapshot struct {
	Branches      []domain.Branch       `json:"branches"`
	Items         []domain.Item         `json:"items"`
	CustomerItems []domain.CustomerItem `json:"customerItems"`
	Orders        []domain.Order        `json:"orders"`
	Deliveries    []domain.Delivery     `json:"deliveries"`
	Payments      []domain.Payment      `json:"payments"`
}

// Store объединяет in-memory репозитории всех сущностей.
type Store struct {
	Branches      *BranchRepository
	Items         *ItemRepository
	CustomerItems *CustomerItemRepository
	Orders        *OrderRepository
	Deliveries    *DeliveryRepository
	Payments      *PaymentRepository
}

// NewStore возвращает пустое хранилище.
func NewStore() *Store {
	return &Store{
		Branches:      NewBranchRepository(),
		Items:         NewItemRepository(),
		CustomerItems: NewCustomerItemRepository(),
		Orders:        NewOrderRepository(),
		Deliveries:    NewDeliveryRepository(),
		Payments:      NewPaymentRepository(),
	}
}

// Stores отдаёт репозитории в виде, который ждёт конвейер валидации.
func (s *Store) Stores() domain.Stores {
	return domain.Stores{
		Branches:      s.Branches,
		Items:         s.Items,
		CustomerItems: s.CustomerItems,
		Orders:        s.Orders,
		Deliveries:    s.Deliveries,
		Payments:      s.Payments,
	}
}

// Load добавляет документы снимка. Документы с пустым ID отклоняются.
func (s *Store) Load(snapshot Snapshot) error {
	for _, b := range snapshot.Branches {
		if b.ID == "" {
			return fmt.Errorf("%s without id", domain.EntityBranch)
		}
		s.Branches.Put(b)
	}
	for _, i := range snapshot.Items {
		if i.ID == "" {
			return fmt.Errorf("%s without id", domain.EntityItem)
		}
		s.Items.Put(i)
	}
	for _, c := range snapshot.CustomerItems {
		if c.ID == "" {
			return fmt.Errorf("%s without id", domain.EntityCustomerItem)
		}
		s.CustomerItems.Put(c)
	}
	for _, o := range snapshot.Orders {
		if o.ID == "" {
			return fmt.Errorf("%s without id", domain.EntityOrder)
		}
		s.Orders.Put(o)
	}
	for _, d := range snapshot.Deliveries {
		if d.ID == "" {
			return fmt.Errorf("%s without id", domain.EntityDelivery)
		}
		s.Deliveries.Put(d)
	}
	for _, p := range snapshot.Payments {
		if p.ID == "" {
			return fmt.Errorf("%s without id", domain.EntityPayment)
		}
		s.Payments.Put(p)
	}
	return nil
}

// LoadFile читает JSON-снимок с диска.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return s.Load(snapshot)
}

// Counts возвращает число документов по видам сущностей.
func (s *Store) Counts() map[domain.Entity]int {
	return map[domain.Entity]int{
		domain.EntityBranch:       s.Branches.docs.len(),
		domain.EntityItem:         s.Items.docs.len(),
		domain.EntityCustomerItem: s.CustomerItems.docs.len(),
		domain.EntityOrder:        s.Orders.docs.len(),
		domain.EntityDelivery:     s.Deliveries.docs.len(),
		domain.EntityPayment:      s.Payments.docs.len(),
	}
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает.
func (s *Store) Close() error {
	return nil
}
