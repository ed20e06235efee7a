package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/adapters"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/observe"
)

const (
	colID         = "id"
	colUserID     = "user_id"
	colResourceID = "resource_id"
	colStartTime  = "start_time"
	colEndTime    = "end_time"
	colLogin      = "login"
	colActive     = "active"
	colKind       = "kind"
	colName       = "name"

	logMsgCloseRowsFailed = "failed to close database rows"
	logAttrError          = "error"
)

// Tables names the three tables of an engine.
type Tables struct {
	Allocations string
	Users       string
	Resources   string
}

// DefaultTables returns the table names used unless an engine option overrides them.
func DefaultTables() Tables {
	return Tables{Allocations: "allocations", Users: "users", Resources: "resources"}
}

// Validate fails with allocation.ErrEmptyTableName if any name is empty.
func (t Tables) Validate() error {
	if t.Allocations == "" || t.Users == "" || t.Resources == "" {
		return allocation.ErrEmptyTableName
	}

	return nil
}

// TimeColumns converts between time.Time and the column representation of an engine.
type TimeColumns interface {
	Encode(t time.Time) any
	ScanTargets() (start any, end any)
	Decode(start any, end any) (time.Time, *time.Time)
}

// NativeTimes stores timestamps in timestamp columns the driver converts itself (PostgreSQL timestamptz).
type NativeTimes struct{}

// Encode implements TimeColumns.
func (NativeTimes) Encode(t time.Time) any {
	return t.UTC()
}

// ScanTargets implements TimeColumns.
func (NativeTimes) ScanTargets() (any, any) {
	return new(time.Time), new(sql.NullTime)
}

// Decode implements TimeColumns.
func (NativeTimes) Decode(start any, end any) (time.Time, *time.Time) {
	startTime := start.(*time.Time).UTC()

	nullEnd := end.(*sql.NullTime)
	if !nullEnd.Valid {
		return startTime, nil
	}

	endTime := nullEnd.Time.UTC()

	return startTime, &endTime
}

// UnixNanoTimes stores timestamps as INTEGER nanoseconds since the epoch (SQLite).
type UnixNanoTimes struct{}

// Encode implements TimeColumns.
func (UnixNanoTimes) Encode(t time.Time) any {
	return t.UnixNano()
}

// ScanTargets implements TimeColumns.
func (UnixNanoTimes) ScanTargets() (any, any) {
	return new(int64), new(sql.NullInt64)
}

// Decode implements TimeColumns.
func (UnixNanoTimes) Decode(start any, end any) (time.Time, *time.Time) {
	startTime := time.Unix(0, *start.(*int64)).UTC()

	nullEnd := end.(*sql.NullInt64)
	if !nullEnd.Valid {
		return startTime, nil
	}

	endTime := time.Unix(0, nullEnd.Int64).UTC()

	return startTime, &endTime
}

// Config describes one SQL engine.
type Config struct {
	Engine            string
	DB                adapters.DBAdapter
	Dialect           goqu.DialectWrapper
	Tables            Tables
	Times             TimeColumns
	IsUniqueViolation func(error) bool
	Instruments       *observe.Instruments
}

// queryRows runs a query and hands every row to scan. Failures are joined with queryFailed.
func (c *Config) queryRows(
	ctx context.Context,
	operation string,
	sqlQuery string,
	args []any,
	queryFailed error,
	scan func(rows adapters.DBRows) error,
) (err error) {
	ctx, call := c.Instruments.BeginStoreCall(ctx, c.Engine, operation)
	defer func() { call.Finish(sqlQuery, err) }()

	rows, err := c.DB.Query(ctx, sqlQuery, args...)
	if err != nil {
		return errors.Join(queryFailed, err)
	}
	defer c.closeRows(ctx, rows)

	for rows.Next() {
		if err = scan(rows); err != nil {
			return errors.Join(allocation.ErrScanningDBRowFailed, err)
		}
	}

	if err = rows.Err(); err != nil {
		return errors.Join(queryFailed, err)
	}

	return nil
}

// exec runs a statement and returns the number of affected rows. Failures are joined with execFailed,
// unique violations are returned as conflict unchanged for the caller to map.
func (c *Config) exec(
	ctx context.Context,
	operation string,
	sqlQuery string,
	args []any,
	execFailed error,
	onUniqueViolation error,
) (rowsAffected int64, err error) {
	ctx, call := c.Instruments.BeginStoreCall(ctx, c.Engine, operation)
	defer func() { call.Finish(sqlQuery, err) }()

	result, err := c.DB.Exec(ctx, sqlQuery, args...)
	if err != nil {
		if onUniqueViolation != nil && c.IsUniqueViolation != nil && c.IsUniqueViolation(err) {
			return 0, onUniqueViolation
		}

		return 0, errors.Join(execFailed, err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return 0, errors.Join(allocation.ErrGettingRowsAffectedFailed, err)
	}

	return rowsAffected, nil
}

func (c *Config) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		c.Instruments.Warn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func buildFailed(err error) error {
	return errors.Join(allocation.ErrBuildingQueryFailed, err)
}

// ExecStatements runs schema statements one by one, e.g., CREATE TABLE and CREATE INDEX.
func (c *Config) ExecStatements(ctx context.Context, operation string, statements []string) error {
	for _, statement := range statements {
		if _, err := c.exec(ctx, operation, statement, nil, allocation.ErrWritingAllocationFailed, nil); err != nil {
			return err
		}
	}

	return nil
}
