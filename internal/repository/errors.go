// Package repository holds the MySQL data access layer.  These sentinel
// values let higher layers distinguish failure scenarios without looking at
// driver errors.  ErrNotFound is returned both for absent rows and for rows
// owned by someone else, so callers cannot probe for other users' records.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the (scoped) lookup.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
