package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/adapters"
)

const (
	operationInsert         = "insert"
	operationFindByID       = "find_by_id"
	operationFindAll        = "find_all"
	operationFindByUserID   = "find_by_user_id"
	operationFindByResource = "find_by_resource_id"
	operationExistsOpen     = "exists_open_for_resource"
	operationUpdateEndTime  = "update_end_time"
	operationDeleteByID     = "delete_by_id"
)

// Allocations implements allocation.Store on top of a Config.
type Allocations struct {
	cfg *Config
}

// NewAllocations creates the allocation.Store of a SQL engine.
func NewAllocations(cfg *Config) *Allocations {
	return &Allocations{cfg: cfg}
}

// Insert assigns a UUIDv7 and maps a unique violation to allocation.ErrResourceUnavailable.
func (s *Allocations) Insert(ctx context.Context, a allocation.Allocation) (allocation.Allocation, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return allocation.Allocation{}, err
	}

	a.ID = id.String()

	sqlQuery, args, err := s.cfg.Dialect.
		Insert(s.cfg.Tables.Allocations).
		Rows(goqu.Record{
			colID:         a.ID,
			colUserID:     a.UserID,
			colResourceID: a.ResourceID,
			colStartTime:  s.cfg.Times.Encode(a.StartTime),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return allocation.Allocation{}, buildFailed(err)
	}

	unavailable := fmt.Errorf("%w: resource with id %s", allocation.ErrResourceUnavailable, a.ResourceID)

	if _, err = s.cfg.exec(ctx, operationInsert, sqlQuery, args, allocation.ErrWritingAllocationFailed, unavailable); err != nil {
		return allocation.Allocation{}, err
	}

	return a, nil
}

// FindByID returns allocation.ErrAllocationNotFound for unknown or malformed IDs.
func (s *Allocations) FindByID(ctx context.Context, id string) (allocation.Allocation, error) {
	notFound := fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)

	if _, err := uuid.Parse(id); err != nil {
		return allocation.Allocation{}, notFound
	}

	found, err := s.selectAllocations(ctx, operationFindByID, goqu.C(colID).Eq(id))
	if err != nil {
		return allocation.Allocation{}, err
	}

	if len(found) == 0 {
		return allocation.Allocation{}, notFound
	}

	return found[0], nil
}

// FindAll lists every allocation in id order.
func (s *Allocations) FindAll(ctx context.Context) (allocation.Allocations, error) {
	return s.selectAllocations(ctx, operationFindAll)
}

// FindByUserID lists the allocations of a user in id order.
func (s *Allocations) FindByUserID(ctx context.Context, userID string) (allocation.Allocations, error) {
	return s.selectAllocations(ctx, operationFindByUserID, goqu.C(colUserID).Eq(userID))
}

// FindByResourceID lists the allocations of a resource in id order.
func (s *Allocations) FindByResourceID(ctx context.Context, resourceID string) (allocation.Allocations, error) {
	return s.selectAllocations(ctx, operationFindByResource, goqu.C(colResourceID).Eq(resourceID))
}

// ExistsOpenForResource reports whether the resource has a row with a NULL end_time.
func (s *Allocations) ExistsOpenForResource(ctx context.Context, resourceID string) (bool, error) {
	sqlQuery, args, err := s.cfg.Dialect.
		From(s.cfg.Tables.Allocations).
		Select(goqu.L("1")).
		Where(goqu.C(colResourceID).Eq(resourceID), goqu.C(colEndTime).IsNull()).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, buildFailed(err)
	}

	exists := false
	err = s.cfg.queryRows(ctx, operationExistsOpen, sqlQuery, args, allocation.ErrQueryingAllocationsFailed,
		func(adapters.DBRows) error {
			exists = true
			return nil
		})

	return exists, err
}

// UpdateEndTime only touches rows whose end_time is still NULL.
func (s *Allocations) UpdateEndTime(ctx context.Context, id string, endTime time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)
	}

	sqlQuery, args, err := s.cfg.Dialect.
		Update(s.cfg.Tables.Allocations).
		Set(goqu.Record{colEndTime: s.cfg.Times.Encode(endTime)}).
		Where(goqu.C(colID).Eq(id), goqu.C(colEndTime).IsNull()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return buildFailed(err)
	}

	rowsAffected, err := s.cfg.exec(ctx, operationUpdateEndTime, sqlQuery, args, allocation.ErrWritingAllocationFailed, nil)
	if err != nil {
		return err
	}

	if rowsAffected > 0 {
		return nil
	}

	current, err := s.FindByID(allocation.WithStrongConsistency(ctx), id)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationAlreadyEnded, current.ID)
}

// DeleteByID returns allocation.ErrAllocationNotFound if no row was deleted.
func (s *Allocations) DeleteByID(ctx context.Context, id string) error {
	notFound := fmt.Errorf("%w: allocation with id %s", allocation.ErrAllocationNotFound, id)

	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}

	sqlQuery, args, err := s.cfg.Dialect.
		Delete(s.cfg.Tables.Allocations).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return buildFailed(err)
	}

	rowsAffected, err := s.cfg.exec(ctx, operationDeleteByID, sqlQuery, args, allocation.ErrWritingAllocationFailed, nil)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}

func (s *Allocations) selectAllocations(
	ctx context.Context,
	operation string,
	conditions ...exp.Expression,
) (allocation.Allocations, error) {
	sqlQuery, args, err := s.cfg.Dialect.
		From(s.cfg.Tables.Allocations).
		Select(colID, colUserID, colResourceID, colStartTime, colEndTime).
		Where(conditions...).
		// UUIDv7 ids sort in insertion order.
		Order(goqu.C(colID).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, buildFailed(err)
	}

	result := make(allocation.Allocations, 0)
	err = s.cfg.queryRows(ctx, operation, sqlQuery, args, allocation.ErrQueryingAllocationsFailed,
		func(rows adapters.DBRows) error {
			var a allocation.Allocation
			start, end := s.cfg.Times.ScanTargets()

			if scanErr := rows.Scan(&a.ID, &a.UserID, &a.ResourceID, start, end); scanErr != nil {
				return scanErr
			}

			a.StartTime, a.EndTime = s.cfg.Times.Decode(start, end)
			result = append(result, a)

			return nil
		})
	if err != nil {
		return nil, err
	}

	return result, nil
}
