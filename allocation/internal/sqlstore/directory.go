package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/adapters"
)

const (
	operationFindUser       = "find_user"
	operationSaveUser       = "save_user"
	operationSetUserActive  = "set_user_active"
	operationFindResource   = "find_resource"
	operationSaveResource   = "save_resource"
	operationDeleteResource = "delete_resource"
)

// Directory implements allocation.UserDirectory and allocation.ResourceCatalog on top of a Config.
type Directory struct {
	cfg *Config
}

// NewDirectory creates the user directory and resource catalog of a SQL engine.
func NewDirectory(cfg *Config) *Directory {
	return &Directory{cfg: cfg}
}

// FindUser returns allocation.ErrUserNotFound for unknown IDs.
func (d *Directory) FindUser(ctx context.Context, id string) (allocation.User, error) {
	sqlQuery, args, err := d.cfg.Dialect.
		From(d.cfg.Tables.Users).
		Select(colID, colLogin, colActive).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return allocation.User{}, buildFailed(err)
	}

	var user allocation.User
	found := false
	err = d.cfg.queryRows(ctx, operationFindUser, sqlQuery, args, allocation.ErrQueryingDirectoryFailed,
		func(rows adapters.DBRows) error {
			found = true
			return rows.Scan(&user.ID, &user.Login, &user.Active)
		})
	if err != nil {
		return allocation.User{}, err
	}

	if !found {
		return allocation.User{}, fmt.Errorf("%w: user with id %s", allocation.ErrUserNotFound, id)
	}

	return user, nil
}

// SaveUser inserts the user or replaces login and active flag of an existing one.
func (d *Directory) SaveUser(ctx context.Context, u allocation.User) error {
	sqlQuery, args, err := d.cfg.Dialect.
		Insert(d.cfg.Tables.Users).
		Rows(goqu.Record{colID: u.ID, colLogin: u.Login, colActive: u.Active}).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colLogin:  goqu.L("EXCLUDED." + colLogin),
			colActive: goqu.L("EXCLUDED." + colActive),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return buildFailed(err)
	}

	_, err = d.cfg.exec(ctx, operationSaveUser, sqlQuery, args, allocation.ErrQueryingDirectoryFailed, nil)

	return err
}

// SetUserActive flips the active flag of an existing user.
func (d *Directory) SetUserActive(ctx context.Context, id string, active bool) error {
	sqlQuery, args, err := d.cfg.Dialect.
		Update(d.cfg.Tables.Users).
		Set(goqu.Record{colActive: active}).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return buildFailed(err)
	}

	rowsAffected, err := d.cfg.exec(ctx, operationSetUserActive, sqlQuery, args, allocation.ErrQueryingDirectoryFailed, nil)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: user with id %s", allocation.ErrUserNotFound, id)
	}

	return nil
}

// FindResource returns allocation.ErrResourceNotFound for unknown IDs.
func (d *Directory) FindResource(ctx context.Context, id string) (allocation.Resource, error) {
	sqlQuery, args, err := d.cfg.Dialect.
		From(d.cfg.Tables.Resources).
		Select(colID, colKind, colName).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return allocation.Resource{}, buildFailed(err)
	}

	var resource allocation.Resource
	found := false
	err = d.cfg.queryRows(ctx, operationFindResource, sqlQuery, args, allocation.ErrQueryingDirectoryFailed,
		func(rows adapters.DBRows) error {
			found = true
			var kind string
			if scanErr := rows.Scan(&resource.ID, &kind, &resource.Name); scanErr != nil {
				return scanErr
			}
			resource.Kind = allocation.ResourceKind(kind)

			return nil
		})
	if err != nil {
		return allocation.Resource{}, err
	}

	if !found {
		return allocation.Resource{}, fmt.Errorf("%w: resource with id %s", allocation.ErrResourceNotFound, id)
	}

	return resource, nil
}

// SaveResource inserts the resource or replaces kind and name of an existing one.
func (d *Directory) SaveResource(ctx context.Context, r allocation.Resource) error {
	sqlQuery, args, err := d.cfg.Dialect.
		Insert(d.cfg.Tables.Resources).
		Rows(goqu.Record{colID: r.ID, colKind: string(r.Kind), colName: r.Name}).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colKind: goqu.L("EXCLUDED." + colKind),
			colName: goqu.L("EXCLUDED." + colName),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return buildFailed(err)
	}

	_, err = d.cfg.exec(ctx, operationSaveResource, sqlQuery, args, allocation.ErrQueryingDirectoryFailed, nil)

	return err
}

// DeleteResource returns allocation.ErrResourceNotFound if no row was deleted.
func (d *Directory) DeleteResource(ctx context.Context, id string) error {
	sqlQuery, args, err := d.cfg.Dialect.
		Delete(d.cfg.Tables.Resources).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return buildFailed(err)
	}

	rowsAffected, err := d.cfg.exec(ctx, operationDeleteResource, sqlQuery, args, allocation.ErrQueryingDirectoryFailed, nil)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: resource with id %s", allocation.ErrResourceNotFound, id)
	}

	return nil
}
