package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

// collection хранит потокобезопасную коллекцию документов одного вида.
type collection[T any] struct {
	entity domain.Entity
	mu     sync.RWMutex
	items  map[string]T
}

func newCollection[T any](entity domain.Entity) *collection[T] {
	return &collection[T]{
		entity: entity,
		items:  make(map[string]T),
	}
}

func (c *collection[T]) get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.items[id]
	if !ok {
		return zero, domain.NewNotFoundError(c.entity, id)
	}
	return doc, nil
}

func (c *collection[T]) getMany(ctx context.Context, ids []string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]T, 0, len(ids))
	for _, id := range ids {
		doc, ok := c.items[id]
		if !ok {
			return nil, domain.NewNotFoundError(c.entity, id)
		}
		result = append(result, doc)
	}
	return result, nil
}

func (c *collection[T]) put(id string, doc T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = doc
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
