package repositories

import "context"

// TxFn runs inside a transaction; returning an error rolls it back.
type TxFn func(ctx context.Context) error

// TransactionManager runs functions transactionally. Implementations put
// the transaction in the context so repositories join it through GetTx.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
