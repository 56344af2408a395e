// Package sql implements the connection layer of the om mapping engine: a
// bounded pool of reusable database sessions, a Database façade that runs
// every statement through allocate/execute/free with health gating, and a
// Transaction context pinned to a single connection.
//
// Opening a database:
//
//	drv, err := sql.Open(dialect.MySQL, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db := sql.NewDatabase(drv, 8,
//	    sql.WithMaxIdleTime(time.Hour),
//	    sql.WithAllocateTimeout(5*time.Second),
//	)
//
// Statements allocate a connection from the pool, execute, and return the
// connection in a deferred block, carrying along any observed error so the
// pool can retire a broken session. Backend-specific failures are wrapped
// into *OperationalError so callers never depend on a driver's own error
// types.
//
// Transactions pin one connection:
//
//	tx, err := db.Tx(ctx)
//	defer tx.Close()
//	...
//	if _, err := tx.Commit(); err != nil { ... }
//
// Nested transactions obtained with tx.Tx share the pinned connection and
// defer their commit to the outermost transaction.
package sql
