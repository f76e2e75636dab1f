package sqlkv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// dialect renders the statements of one SQL flavour.
type dialect struct {
	name      string
	blobType  string
	keyType   string
	numbered  bool
	upsertFmt string
}

var dialects = map[string]dialect{
	SQLite: {
		name:      SQLite,
		blobType:  "BLOB",
		keyType:   "TEXT",
		upsertFmt: "INSERT INTO %s (id, data) VALUES (%s, %s) ON CONFLICT (id) DO UPDATE SET data = excluded.data",
	},
	Postgres: {
		name:      Postgres,
		blobType:  "BYTEA",
		keyType:   "TEXT",
		numbered:  true,
		upsertFmt: "INSERT INTO %s (id, data) VALUES (%s, %s) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data",
	},
	MySQL: {
		name:      MySQL,
		blobType:  "LONGBLOB",
		keyType:   "VARCHAR(255)",
		upsertFmt: "INSERT INTO %s (id, data) VALUES (%s, %s) ON DUPLICATE KEY UPDATE data = VALUES(data)",
	},
}

// dialectFor resolves a driver name, including wrapped names such as
// "sqlite3" or "postgres-otel", to its dialect.
func dialectFor(driver string) (dialect, error) {
	for _, name := range []string{MySQL, SQLite, Postgres} {
		if strings.HasPrefix(driver, name) {
			return dialects[name], nil
		}
	}
	if driver == "pgx" {
		return dialects[Postgres], nil
	}
	return dialect{}, fmt.Errorf("sqlkv: unsupported dialect %q", driver)
}

// arg returns the placeholder of the n-th (1-based) argument.
func (d dialect) arg(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d dialect) args(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.arg(from + i)
	}
	return strings.Join(parts, ", ")
}

func (d dialect) createTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id %s NOT NULL PRIMARY KEY, data %s NOT NULL)", table, d.keyType, d.blobType)
}

func (d dialect) selectOne(table string) string {
	return fmt.Sprintf("SELECT data FROM %s WHERE id = %s", table, d.arg(1))
}

func (d dialect) selectMany(table string, n int) string {
	return fmt.Sprintf("SELECT id, data FROM %s WHERE id IN (%s)", table, d.args(1, n))
}

func (d dialect) upsert(table string) string {
	return fmt.Sprintf(d.upsertFmt, table, d.arg(1), d.arg(2))
}

func (d dialect) delete(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, d.arg(1))
}

func (d dialect) selectKeys(table string, prefix bool) string {
	if !prefix {
		return fmt.Sprintf("SELECT id FROM %s ORDER BY id", table)
	}
	return fmt.Sprintf("SELECT id FROM %s WHERE substr(id, 1, %s) = %s ORDER BY id", table, d.arg(1), d.arg(2))
}
