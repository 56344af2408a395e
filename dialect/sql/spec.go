package sql

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/om/dialect"
)

// Spec holds the immutable parameters used to open a physical connection.
// Specs are created at configuration time and validated once, when they
// are registered; they are read-only thereafter.
type Spec struct {
	// Dialect names the backend: mysql, postgres or sqlite.
	Dialect string `yaml:"dialect"`
	// Host is a host, host:port pair, or a unix socket path (any value
	// containing a slash is treated as a socket). Unused for sqlite.
	Host string `yaml:"host"`
	// Database is the database name, or the file path for sqlite.
	Database string `yaml:"database"`

	User     string `yaml:"user"`
	Password string `yaml:"password"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Charset        string        `yaml:"charset"`
	TimeZone       string        `yaml:"time_zone"`

	// Params carries backend-specific DSN parameters verbatim.
	Params map[string]string `yaml:"params"`
}

// Validate rejects incomplete specs. It is called once at registration.
func (s *Spec) Validate() error {
	switch s.Dialect {
	case dialect.MySQL, dialect.Postgres:
		if s.Host == "" {
			return fmt.Errorf("sql: connection spec requires a host")
		}
		if s.Database == "" {
			return fmt.Errorf("sql: connection spec requires a database")
		}
	case dialect.SQLite:
		if s.Database == "" {
			return fmt.Errorf("sql: connection spec requires a database path")
		}
	case "":
		return fmt.Errorf("sql: connection spec requires a dialect")
	default:
		return fmt.Errorf("sql: unsupported dialect %q", s.Dialect)
	}
	return nil
}

// DriverName returns the database/sql driver name to open this spec with.
func (s *Spec) DriverName() string {
	if s.Dialect == dialect.Postgres {
		return "postgres"
	}
	return s.Dialect
}

// DSN renders the spec into the driver's data source name format.
func (s *Spec) DSN() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	switch s.Dialect {
	case dialect.MySQL:
		return s.mysqlDSN(), nil
	case dialect.Postgres:
		return s.postgresDSN(), nil
	default:
		return s.sqliteDSN(), nil
	}
}

func (s *Spec) mysqlDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.DBName = s.Database
	cfg.Timeout = s.ConnectTimeout
	if strings.Contains(s.Host, "/") {
		cfg.Net = "unix"
		cfg.Addr = s.Host
	} else {
		cfg.Net = "tcp"
		cfg.Addr = s.Host
		if !strings.Contains(s.Host, ":") {
			cfg.Addr = s.Host + ":3306"
		}
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	if s.Charset != "" {
		cfg.Params["charset"] = s.Charset
	}
	if s.TimeZone != "" {
		cfg.Params["time_zone"] = "'" + s.TimeZone + "'"
	}
	for k, v := range s.Params {
		cfg.Params[k] = v
	}
	return cfg.FormatDSN()
}

func (s *Spec) postgresDSN() string {
	kv := map[string]string{
		"host":   s.Host,
		"dbname": s.Database,
	}
	if host, port, ok := strings.Cut(s.Host, ":"); ok {
		kv["host"], kv["port"] = host, port
	}
	if s.User != "" {
		kv["user"] = s.User
	}
	if s.Password != "" {
		kv["password"] = s.Password
	}
	if s.ConnectTimeout > 0 {
		kv["connect_timeout"] = fmt.Sprintf("%d", int(s.ConnectTimeout.Seconds()))
	}
	if s.TimeZone != "" {
		kv["timezone"] = s.TimeZone
	}
	for k, v := range s.Params {
		kv[k] = v
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+kv[k])
	}
	return strings.Join(parts, " ")
}

func (s *Spec) sqliteDSN() string {
	dsn := s.Database
	if len(s.Params) == 0 {
		return dsn
	}
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+s.Params[k])
	}
	return dsn + "?" + strings.Join(parts, "&")
}
