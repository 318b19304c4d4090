package repo

import (
	"context"
	"testing"

	"github.com/medok/medok-backend/pkg/db/dbtest"
)

type ctxKey struct{}

func TestNewBaseStoresConnection(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	if base.conn != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil || withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	//nolint:staticcheck // nil context returns the raw handle
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseWithTx(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	tx := db.Begin()
	defer tx.Rollback()

	if got := base.WithTx(tx); got.conn != tx {
		t.Fatalf("expected tx-bound base")
	}
	if got := base.WithTx(nil); got.conn != db {
		t.Fatalf("expected nil tx to keep original connection")
	}
}
