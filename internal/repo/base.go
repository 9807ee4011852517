package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sqliteDialect = "sqlite"

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn exposes the raw handle, used when a repository rebinds to a transaction.
func (b Base) Conn() *gorm.DB {
	return b.db
}

// ForUpdate returns a handle that row-locks selected records. SQLite has no
// row locks; it serializes writers instead, so the clause is omitted there.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	conn := b.DB(ctx)
	if IsSQLite(conn) {
		return conn
	}
	return conn.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsSQLite reports whether conn talks to SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return conn != nil && conn.Dialector != nil && conn.Dialector.Name() == sqliteDialect
}
