package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; outer DB stays open

// Ping is a no-op: the connection is held for the life of the transaction.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Invites() store.Invites           { return &invitesRepo{db: t.tx} }
func (t *txStore) Links() store.Links               { return &linksRepo{db: t.tx} }
func (t *txStore) Properties() store.Properties     { return &propertiesRepo{db: t.tx} }
func (t *txStore) RolloutFlags() store.RolloutFlags { return &rolloutFlagsRepo{db: t.tx} }
func (t *txStore) RolloutAudit() store.RolloutAudit { return &rolloutAuditRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
