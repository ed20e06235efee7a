// Package memengine provides in-memory implementations of allocation.Store, allocation.UserDirectory,
// and allocation.ResourceCatalog.
//
// Like a plain document store it enforces no uniqueness across records, so exclusivity relies entirely
// on the lifecycle manager's critical section. It is used by tests and by allocationd with engine "memory".
package memengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// Store keeps allocations in insertion order.
type Store struct {
	mu          sync.RWMutex
	allocations []allocation.Allocation
	index       map[string]int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Insert assigns a new UUID and stores a copy of a.
func (s *Store) Insert(_ context.Context, a allocation.Allocation) (allocation.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.Must(uuid.NewV7()).String()
	a = clone(a)
	s.index[a.ID] = len(s.allocations)
	s.allocations = append(s.allocations, a)

	return clone(a), nil
}

// FindByID returns allocation.ErrAllocationNotFound for unknown IDs.
func (s *Store) FindByID(_ context.Context, id string) (allocation.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return allocation.Allocation{}, fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)
	}

	return clone(s.allocations[i]), nil
}

// FindAll returns copies of all allocations.
func (s *Store) FindAll(_ context.Context) (allocation.Allocations, error) {
	return s.collect(func(allocation.Allocation) bool { return true }), nil
}

// FindByUserID returns copies of the allocations of a user.
func (s *Store) FindByUserID(_ context.Context, userID string) (allocation.Allocations, error) {
	return s.collect(func(a allocation.Allocation) bool { return a.UserID == userID }), nil
}

// FindByResourceID returns copies of the allocations of a resource.
func (s *Store) FindByResourceID(_ context.Context, resourceID string) (allocation.Allocations, error) {
	return s.collect(func(a allocation.Allocation) bool { return a.ResourceID == resourceID }), nil
}

// ExistsOpenForResource scans for an open allocation of the resource.
func (s *Store) ExistsOpenForResource(_ context.Context, resourceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.allocations {
		if a.ResourceID == resourceID && a.IsOpen() {
			return true, nil
		}
	}

	return false, nil
}

// UpdateEndTime sets the end time only while the allocation is still open.
func (s *Store) UpdateEndTime(_ context.Context, id string, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)
	}

	if !s.allocations[i].IsOpen() {
		return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationAlreadyEnded, id)
	}

	s.allocations[i].EndTime = &endTime

	return nil
}

// DeleteByID removes the allocation and reindexes the ones after it.
func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)
	}

	s.allocations = append(s.allocations[:i], s.allocations[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.allocations); j++ {
		s.index[s.allocations[j].ID] = j
	}

	return nil
}

func (s *Store) collect(keep func(allocation.Allocation) bool) allocation.Allocations {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(allocation.Allocations, 0)
	for _, a := range s.allocations {
		if keep(a) {
			result = append(result, clone(a))
		}
	}

	return result
}

func clone(a allocation.Allocation) allocation.Allocation {
	if a.EndTime != nil {
		endTime := *a.EndTime
		a.EndTime = &endTime
	}

	return a
}

// Directory is an in-memory user directory and resource catalog.
type Directory struct {
	mu        sync.RWMutex
	users     map[string]allocation.User
	resources map[string]allocation.Resource
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		users:     make(map[string]allocation.User),
		resources: make(map[string]allocation.Resource),
	}
}

// SaveUser creates or replaces a user.
func (d *Directory) SaveUser(_ context.Context, u allocation.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[u.ID] = u

	return nil
}

// SaveResource creates or replaces a resource.
func (d *Directory) SaveResource(_ context.Context, r allocation.Resource) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resources[r.ID] = r

	return nil
}

// SetUserActive flips the active flag of an existing user.
func (d *Directory) SetUserActive(_ context.Context, id string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return fmt.Errorf("%w: user with id %s", allocation.ErrUserNotFound, id)
	}

	u.Active = active
	d.users[id] = u

	return nil
}

// FindUser returns allocation.ErrUserNotFound for unknown IDs.
func (d *Directory) FindUser(_ context.Context, id string) (allocation.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return allocation.User{}, fmt.Errorf("%w: user with id %s", allocation.ErrUserNotFound, id)
	}

	return u, nil
}

// FindResource returns allocation.ErrResourceNotFound for unknown IDs.
func (d *Directory) FindResource(_ context.Context, id string) (allocation.Resource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.resources[id]
	if !ok {
		return allocation.Resource{}, fmt.Errorf("%w: resource with id %s", allocation.ErrResourceNotFound, id)
	}

	return r, nil
}

// DeleteResource returns allocation.ErrResourceNotFound for unknown IDs.
func (d *Directory) DeleteResource(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.resources[id]; !ok {
		return fmt.Errorf("%w: resource with id %s", allocation.ErrResourceNotFound, id)
	}

	delete(d.resources, id)

	return nil
}
