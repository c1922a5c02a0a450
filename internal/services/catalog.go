package services

import (
	"context"
	"fmt"
	"sync"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// itemOps is the kind-independent view of one item variant's store and mirror
type itemOps interface {
	kind() models.Kind
	get(ctx context.Context, id int64) (models.Item, error)
	transfer(ctx context.Context, id, newOwnerID int64) error
	delete(ctx context.Context, id int64) error
	idsByBrand(ctx context.Context, brand string) ([]int64, error)
	mirrorIDsByBrand(brand string) []int64
	mirrorUpdate(id int64, fn func(models.Item)) bool
	mirrorRemove(id int64) bool
}

type itemBinding[T any, P interface {
	*T
	models.Item
}] struct {
	k      models.Kind
	repo   repositories.ItemRepository[T]
	mirror *Mirror[T]
}

func (b *itemBinding[T, P]) kind() models.Kind { return b.k }

func (b *itemBinding[T, P]) get(ctx context.Context, id int64) (models.Item, error) {
	v, err := b.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return P(v), nil
}

func (b *itemBinding[T, P]) transfer(ctx context.Context, id, newOwnerID int64) error {
	return b.repo.TransferOwnership(ctx, id, newOwnerID)
}

func (b *itemBinding[T, P]) delete(ctx context.Context, id int64) error {
	return b.repo.Delete(ctx, id)
}

func (b *itemBinding[T, P]) idsByBrand(ctx context.Context, brand string) ([]int64, error) {
	return b.repo.ListIDsByBrand(ctx, brand)
}

func (b *itemBinding[T, P]) mirrorIDsByBrand(brand string) []int64 {
	var ids []int64
	for _, v := range b.mirror.Filter(func(v *T) bool { return P(v).Base().Brand == brand }) {
		ids = append(ids, P(v).Base().ID)
	}
	return ids
}

func (b *itemBinding[T, P]) mirrorUpdate(id int64, fn func(models.Item)) bool {
	return b.mirror.Update(id, func(v *T) { fn(P(v)) })
}

func (b *itemBinding[T, P]) mirrorRemove(id int64) bool {
	return b.mirror.Remove(id)
}

// catalog dispatches over the closed set of item kinds
type catalog struct {
	byKind map[models.Kind]itemOps
}

func newCatalog(repos repositories.Repositories, mirrors *Mirrors) *catalog {
	return &catalog{byKind: map[models.Kind]itemOps{
		models.KindCar:  &itemBinding[models.Car, *models.Car]{k: models.KindCar, repo: repos.Cars(), mirror: mirrors.Cars},
		models.KindBike: &itemBinding[models.Bike, *models.Bike]{k: models.KindBike, repo: repos.Bikes(), mirror: mirrors.Bikes},
	}}
}

func (c *catalog) ops(kind models.Kind) (itemOps, error) {
	ops, ok := c.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an item kind", ErrValidation, kind)
	}
	return ops, nil
}

type itemKey struct {
	kind models.Kind
	id   int64
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// itemLocks hands out one mutex per item. Entries are dropped once unused.
type itemLocks struct {
	mu    sync.Mutex
	locks map[itemKey]*lockEntry
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[itemKey]*lockEntry)}
}

// lock blocks until the item's mutex is held and returns its release func
func (l *itemLocks) lock(kind models.Kind, id int64) func() {
	key := itemKey{kind: kind, id: id}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
