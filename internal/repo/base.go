// Package repo holds what every gorm-backed domain repository shares.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories. conn is either the pool or a
// transaction the caller opened.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base { return Base{conn: conn} }

// DB scopes the handle to ctx. A nil ctx yields the handle unchanged.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx != nil {
		return b.conn.WithContext(ctx)
	}
	return b.conn
}

// WithTx rebinds the repository to tx; a nil tx keeps the current handle.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx != nil {
		b.conn = tx
	}
	return b
}
