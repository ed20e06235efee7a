package allocation

import (
	"fmt"
	"strings"
	"time"
)

// Allocation represents one loan period of a resource to a user.
//
// EndTime == nil means the allocation is open (the resource is currently held).
// While its fields are exported, new allocations should only be constructed with BuildAllocation
// and closed with End.
type Allocation struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	ResourceID string     `json:"resourceId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime"`
}

// Allocations is a slice of Allocation with subset helpers.
type Allocations []Allocation

// BuildAllocation creates a new open allocation that has not been persisted yet (the store assigns the ID).
func BuildAllocation(userID string, resourceID string, startTime time.Time) (Allocation, error) {
	if IsBlank(userID) {
		return Allocation{}, ErrBlankUserID
	}

	if IsBlank(resourceID) {
		return Allocation{}, ErrBlankResourceID
	}

	return Allocation{
		UserID:     userID,
		ResourceID: resourceID,
		StartTime:  startTime,
	}, nil
}

// IsOpen reports whether the resource is still held by this allocation.
func (a Allocation) IsOpen() bool {
	return a.EndTime == nil
}

// End returns a closed copy of the allocation.
// An end time before the start time (e.g., after a clock step) is clamped to the start time.
func (a Allocation) End(at time.Time) (Allocation, error) {
	if !a.IsOpen() {
		return a, fmt.Errorf("%w: allocation with id %s", ErrAllocationAlreadyEnded, a.ID)
	}

	if at.Before(a.StartTime) {
		at = a.StartTime
	}

	a.EndTime = &at

	return a, nil
}

// Open returns the open subset, preserving order.
func (as Allocations) Open() Allocations {
	return as.filter(Allocation.IsOpen)
}

// Closed returns the closed subset, preserving order.
func (as Allocations) Closed() Allocations {
	return as.filter(func(a Allocation) bool { return !a.IsOpen() })
}

func (as Allocations) filter(keep func(Allocation) bool) Allocations {
	result := make(Allocations, 0, len(as))

	for _, a := range as {
		if keep(a) {
			result = append(result, a)
		}
	}

	return result
}

// IsBlank reports whether an identifier is empty or whitespace only.
func IsBlank(id string) bool {
	return strings.TrimSpace(id) == ""
}
