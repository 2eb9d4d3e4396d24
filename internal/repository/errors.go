// Package repository defines error types that are reused across every
// store implementation. These sentinel values allow the service layer
// to tell a missing row from a unique-key violation without knowing
// which database produced it. For example, ErrDuplicate signals that an
// insert collided with one of the natural keys (imdb_id, (film, user),
// (event, film), (event_film, user)), while ErrConflict signals that
// the database aborted the transaction because of a concurrent writer.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id or natural key matches no
// row. Services translate it into their own not-found error.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ErrConflict is returned when the database rolled the transaction back
// because of a deadlock or lock wait timeout.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers the store reacts to.
const (
	mysqlDupEntry        = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// mapError converts driver errors into the sentinels above. Errors it
// does not recognise are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %s", ErrConflict, me.Message)
		}
	}
	return err
}
