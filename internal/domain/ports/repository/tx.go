package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle passed through repository methods. The
// concrete type is infra-defined (pgx.Tx for Postgres); repositories MUST
// accept nil for the non-transactional path.
type Tx interface{}

// TransactionManager executes a function within a database transaction,
// handing the tx handle to repositories via the Tx argument. Keeps use-case
// interfaces clean of storage types.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
