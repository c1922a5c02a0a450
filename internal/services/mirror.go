package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// Mirror is an ordered in-memory cache of one entity kind. Reads hand out
// clones; mutations go through the mirror's lock.
type Mirror[T any] struct {
	mu      sync.RWMutex
	entries []*T
	id      func(*T) int64
	clone   func(*T) *T
}

// NewMirror creates an empty mirror
func NewMirror[T any](id func(*T) int64, clone func(*T) *T) *Mirror[T] {
	return &Mirror[T]{id: id, clone: clone}
}

// Append adds an entry at the end, preserving load order
func (m *Mirror[T]) Append(v *T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, m.clone(v))
}

// Get returns a copy of the entry with the given id
func (m *Mirror[T]) Get(id int64) (*T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(id); i >= 0 {
		return m.clone(m.entries[i]), true
	}
	return nil, false
}

// Update applies fn to the entry with the given id in place
func (m *Mirror[T]) Update(id int64, fn func(*T)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return false
	}
	fn(m.entries[i])
	return true
}

// Remove drops the entry with the given id
func (m *Mirror[T]) Remove(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return true
}

// Filter returns copies of the entries matching keep, in order
func (m *Mirror[T]) Filter(keep func(*T) bool) []*T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*T
	for _, e := range m.entries {
		if keep == nil || keep(e) {
			out = append(out, m.clone(e))
		}
	}
	return out
}

// List returns copies of all entries, in order
func (m *Mirror[T]) List() []*T {
	return m.Filter(nil)
}

// Len returns the number of entries
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Replace swaps the whole content
func (m *Mirror[T]) Replace(entries []*T) {
	copied := make([]*T, len(entries))
	for i, e := range entries {
		copied[i] = m.clone(e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = copied
}

func (m *Mirror[T]) index(id int64) int {
	for i, e := range m.entries {
		if m.id(e) == id {
			return i
		}
	}
	return -1
}

// Mirrors holds the per-kind caches. Items keep owner and frame ids only;
// readers resolve them against the profile and frame mirrors.
type Mirrors struct {
	Profiles *Mirror[models.Profile]
	Frames   *Mirror[models.Frame]
	Cars     *Mirror[models.Car]
	Bikes    *Mirror[models.Bike]

	// writes holds store writes and their mirror updates off a running Rebuild
	writes sync.RWMutex
	repos  repositories.Repositories
	logger *logrus.Logger
}

// NewMirrors creates empty mirrors over the given store
func NewMirrors(repos repositories.Repositories, logger *logrus.Logger) *Mirrors {
	if logger == nil {
		logger = logrus.New()
	}
	return &Mirrors{
		Profiles: NewMirror(func(p *models.Profile) int64 { return p.ID }, (*models.Profile).Clone),
		Frames: NewMirror(func(f *models.Frame) int64 { return f.ID }, func(f *models.Frame) *models.Frame {
			c := *f
			return &c
		}),
		Cars:   NewMirror(func(c *models.Car) int64 { return c.ID }, cloneCar),
		Bikes:  NewMirror(func(b *models.Bike) int64 { return b.ID }, cloneBike),
		repos:  repos,
		logger: logger,
	}
}

func cloneCar(c *models.Car) *models.Car {
	return c.Clone().(*models.Car)
}

func cloneBike(b *models.Bike) *models.Bike {
	return b.Clone().(*models.Bike)
}

// Track runs a store write together with its mirror update. Rebuild waits
// for tracked writes and holds new ones until its swap is done.
func (m *Mirrors) Track(write func() error) error {
	m.writes.RLock()
	defer m.writes.RUnlock()
	return write()
}

// Rebuild reloads every mirror from the store
func (m *Mirrors) Rebuild(ctx context.Context) error {
	m.writes.Lock()
	defer m.writes.Unlock()

	all := repositories.ListOptions{}

	profiles, err := m.repos.Profiles().List(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to rebuild profiles: %w", err)
	}
	frames, err := m.repos.Frames().List(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to rebuild frames: %w", err)
	}
	cars, err := m.repos.Cars().List(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to rebuild cars: %w", err)
	}
	bikes, err := m.repos.Bikes().List(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to rebuild bikes: %w", err)
	}

	for _, c := range cars {
		c.Owner = nil
	}
	for _, b := range bikes {
		b.Owner, b.Frame = nil, nil
	}

	m.Profiles.Replace(profiles)
	m.Frames.Replace(frames)
	m.Cars.Replace(cars)
	m.Bikes.Replace(bikes)

	m.logger.WithFields(logrus.Fields{
		"profiles": len(profiles),
		"frames":   len(frames),
		"cars":     len(cars),
		"bikes":    len(bikes),
	}).Info("Mirrors rebuilt from store")
	return nil
}

// Sizes reports the number of cached entries per kind
func (m *Mirrors) Sizes() map[models.Kind]int {
	return map[models.Kind]int{
		models.KindProfile: m.Profiles.Len(),
		models.KindFrame:   m.Frames.Len(),
		models.KindCar:     m.Cars.Len(),
		models.KindBike:    m.Bikes.Len(),
	}
}

// hydrate attaches owner (and frame) copies from the mirrors to an item copy
func (m *Mirrors) hydrate(item models.Item) {
	base := item.Base()
	if owner, ok := m.Profiles.Get(base.OwnerID); ok {
		base.Owner = owner
	}
	if bike, ok := item.(*models.Bike); ok {
		if frame, ok := m.Frames.Get(bike.FrameID); ok {
			bike.Frame = frame
		}
	}
}
