//go:build cgo_sqlite

package session

// Builds tagged cgo_sqlite swap the pure-Go sqlite driver for the cgo
// one: pass driver "sqlite3" to NewSQLStore. The non-postgres dialect
// branch in upsert/placeholder covers both sqlite drivers.
import (
	_ "github.com/mattn/go-sqlite3"
)
