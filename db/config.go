package db

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/dialect"
)

// Default ports used when building DSNs.
const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// sqliteBusyTimeout is appended to SQLite DSNs (milliseconds).
const sqliteBusyTimeout = "_pragma=busy_timeout(60000)"

// Config holds the connection settings. Either DSN is set, or the
// individual fields are used to build one for the driver.
type Config struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	InitQuery string `yaml:"init_query"`
}

// Dialect returns the normalized dialect name of the configured driver.
func (c Config) Dialect() string {
	return dialect.Normalize(c.Driver)
}

// Validate checks the driver name and that enough settings are present to
// build a DSN.
func (c Config) Validate() error {
	if !dialect.Supported(c.Driver) {
		return rowmap.NewConfigurationError("driver", c.Driver,
			"unsupported database type, expect mysql, postgres or sqlite")
	}
	if c.DSN == "" && c.Database == "" {
		return rowmap.NewConfigurationError("database", nil, "either dsn or database is required")
	}
	return nil
}

// DataSourceName returns the DSN passed to database/sql.Open.
func (c Config) DataSourceName() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	switch c.Dialect() {
	case dialect.MySQL:
		if c.DSN != "" {
			return c.DSN, nil
		}
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort(c.Host, c.Port, defaultMySQLPort)
		cfg.DBName = c.Database
		return cfg.FormatDSN(), nil
	case dialect.Postgres:
		if c.DSN != "" {
			if isURL(c.DSN) {
				return pq.ParseURL(c.DSN)
			}
			return c.DSN, nil
		}
		host := c.Host
		if host == "" {
			host = "localhost"
		}
		port := c.Port
		if port == 0 {
			port = defaultPostgresPort
		}
		parts := []string{
			"host=" + pgValue(host),
			"port=" + strconv.Itoa(port),
			"dbname=" + pgValue(c.Database),
		}
		if c.User != "" {
			parts = append(parts, "user="+pgValue(c.User))
		}
		if c.Password != "" {
			parts = append(parts, "password="+pgValue(c.Password))
		}
		return strings.Join(parts, " "), nil
	default:
		src := c.DSN
		if src == "" {
			src = "file:" + c.Database
		}
		if strings.Contains(src, "busy_timeout") {
			return src, nil
		}
		sep := "?"
		if strings.Contains(src, "?") {
			sep = "&"
		}
		return src + sep + sqliteBusyTimeout, nil
	}
}

// Properties derives the read-only identity bag of a connection from the
// configuration. Settings embedded in a DSN take precedence.
func (c Config) Properties() (Properties, error) {
	p := Properties{
		Server:   c.Dialect(),
		Host:     c.Host,
		User:     c.User,
		Database: c.Database,
		Schema:   c.Schema,
	}
	switch p.Server {
	case dialect.MySQL:
		if c.DSN != "" {
			cfg, err := mysql.ParseDSN(c.DSN)
			if err != nil {
				return p, rowmap.NewConfigurationError("dsn", nil, err.Error())
			}
			p.Host, p.User, p.Database = cfg.Addr, cfg.User, cfg.DBName
		}
	case dialect.Postgres:
		if c.DSN != "" {
			kv := c.DSN
			if isURL(kv) {
				var err error
				if kv, err = pq.ParseURL(kv); err != nil {
					return p, rowmap.NewConfigurationError("dsn", nil, err.Error())
				}
			}
			for k, v := range parseKeyValues(kv) {
				switch k {
				case "host":
					p.Host = v
				case "user":
					p.User = v
				case "dbname":
					p.Database = v
				}
			}
		}
	case dialect.SQLite:
		if p.Database == "" {
			p.Database = strings.TrimPrefix(strings.SplitN(c.DSN, "?", 2)[0], "file:")
		}
	}
	if p.Schema == "" {
		p.Schema = defaultSchema(p.Server, p.Database)
	}
	return p, nil
}

// defaultSchema returns the catalog schema that tables live in by default.
func defaultSchema(server, database string) string {
	switch server {
	case dialect.Postgres:
		return "public"
	case dialect.SQLite:
		return "main"
	default:
		return database
	}
}

func hostPort(host string, port, def int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		if _, _, err := net.SplitHostPort(host); err == nil {
			return host
		}
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// pgValue quotes a libpq keyword value when needed.
func pgValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// parseKeyValues parses a libpq "k=v k='v v'" connection string.
func parseKeyValues(s string) map[string]string {
	out := make(map[string]string)
	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " ")
		var val strings.Builder
		if strings.HasPrefix(s, "'") {
			i := 1
			for ; i < len(s); i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
					val.WriteByte(s[i])
					continue
				}
				if s[i] == '\'' {
					break
				}
				val.WriteByte(s[i])
			}
			s = s[min(i+1, len(s)):]
		} else {
			end := strings.IndexByte(s, ' ')
			if end < 0 {
				end = len(s)
			}
			val.WriteString(s[:end])
			s = s[end:]
		}
		out[key] = val.String()
	}
	return out
}

// String returns the configuration without the password.
func (c Config) String() string {
	return fmt.Sprintf("driver=%s host=%s user=%s database=%s", c.Dialect(), c.Host, c.User, c.Database)
}
