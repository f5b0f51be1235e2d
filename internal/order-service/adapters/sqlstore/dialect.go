package sqlstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so TEXT comparison is chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string
	// migrations is the directory inside migrations.FS.
	migrations string
	// rebind turns ? placeholders into the driver's style.
	rebind func(query string) string
	// txOptions is used for multi-row writes.
	txOptions *sql.TxOptions
	// timeArg encodes a timestamp parameter.
	timeArg func(t time.Time) any
	// uniqueViolation reports a unique constraint failure.
	uniqueViolation func(err error) bool
}

// SQLite is the embedded modernc.org/sqlite dialect.
var SQLite = Dialect{
	Name:       "sqlite",
	migrations: "sqlite",
	rebind:     func(q string) string { return q },
	timeArg: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
	uniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
}

// Postgres is the lib/pq dialect.
var Postgres = Dialect{
	Name:       "postgres",
	migrations: "postgres",
	rebind:     dollarPlaceholders,
	txOptions:  &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	timeArg: func(t time.Time) any {
		return t.UTC()
	},
	uniqueViolation: func(err error) bool {
		var pe *pq.Error
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

// dollarPlaceholders rewrites ? into $1, $2, ... Queries in this package
// never contain a literal question mark.
func dollarPlaceholders(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.timeArg(*t)
}
