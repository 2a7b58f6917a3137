// Package repository holds the MySQL-backed collections.  Each repo maps
// driver errors onto the sentinels of the package that consumes it so
// handlers only ever see domain errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned by UserRepo.Create for a taken address.
var ErrEmailExists = errors.New("email already exists")

const errDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-key violation, optionally on
// a key whose name contains keyName.
func isDuplicate(err error, keyName string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDuplicateEntry {
		return false
	}
	return keyName == "" || strings.Contains(me.Message, keyName)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
