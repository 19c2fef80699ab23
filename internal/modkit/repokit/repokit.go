// Package repokit is the sql side of a module: the store seams under
// repo friendly names, tx helpers and the boot time dependency guard
package repokit

import (
	"context"
	"fmt"
	"time"

	"linkshell/internal/platform/store"
)

type (
	Queryer    = store.RowQuerier
	TxRunner   = store.TxRunner
	Rows       = store.Rows
	Row        = store.Row
	CommandTag = store.CommandTag
)

// Binder builds a repo over whichever Queryer it is handed, the pool or a tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// MustBind binds b to q. A nil q is a wiring bug and panics
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: bind on nil Queryer")
	}
	return b.Bind(q)
}

// WithTx runs fn in one transaction on tx
func WithTx(ctx context.Context, tx TxRunner, fn func(Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// MustGuard pings the configured backends before the service takes traffic.
// timeout applies only when ctx has no deadline of its own
func MustGuard(ctx context.Context, st interface{ Guard(context.Context) error }, timeout time.Duration) {
	if _, has := ctx.Deadline(); !has && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("repokit: store not ready: %w", err))
	}
}
