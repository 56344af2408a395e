package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/syssam/om/dialect"
)

// Driver wraps a database/sql handle and hands out dedicated sessions for
// the pool. One Driver is shared by all connections of a pool; each pooled
// Conn is its own *sql.Conn session.
type Driver struct {
	db      *sql.DB
	dialect string
}

// Open opens a new driver for the given dialect and data source name.
func Open(dialect, dsn string) (*Driver, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	return OpenDB(dialect, db), nil
}

// OpenSpec opens a driver from a validated connection spec.
func OpenSpec(spec *Spec) (*Driver, error) {
	dsn, err := spec.DSN()
	if err != nil {
		return nil, err
	}
	return Open(spec.DriverName(), dsn)
}

// OpenDB wraps an existing database/sql handle with a Driver.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return &Driver{db: db, dialect: dialect}
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the dialect name. A wrapped or suffixed driver name
// reports its base dialect.
func (d *Driver) Dialect() string {
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// OpenConn opens one dedicated session. It implements the Opener interface
// consumed by the pool.
func (d *Driver) OpenConn(ctx context.Context) (*Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, wrapError(err)
	}
	return newConn(c), nil
}

// Close closes the underlying handle and every idle session it owns.
func (d *Driver) Close() error { return d.db.Close() }

// operational reports whether err is a connectivity-class failure of the
// underlying connection, as opposed to a statement or usage error.
func operational(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		// Class 08: connection exception. Class 57: operator intervention
		// (shutdown, crash, admin kill).
		class := pqe.Code.Class()
		return class == "08" || class == "57"
	}
	var mye *mysql.MySQLError
	if errors.As(err, &mye) {
		switch mye.Number {
		case 1053, 1152, 1184, 1317:
			// server shutdown, aborted connection, aborted new
			// connection, query interrupted mid-stream
			return true
		}
	}
	return false
}

// wrapError converts operational driver failures into *OperationalError and
// leaves every other error untouched.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsOperational(err) {
		return err
	}
	if operational(err) {
		return &OperationalError{err: err}
	}
	return err
}
