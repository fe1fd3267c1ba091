package sqlstore

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Name     string
	Driver   string
	schema   []string
	numbered bool
}

var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	profile_image TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
		`CREATE TABLE IF NOT EXISTS saved_products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	source TEXT NOT NULL,
	date_added DATETIME NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS saved_products_user_product_key ON saved_products (user_id, product_id)`,
	},
}

var Postgres = Dialect{
	Name:   "postgres",
	Driver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	profile_image TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
		`CREATE TABLE IF NOT EXISTS saved_products (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	source TEXT NOT NULL,
	date_added TIMESTAMPTZ NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS saved_products_user_product_key ON saved_products (user_id, product_id)`,
	},
	numbered: true,
}

// Rebind rewrites ? placeholders into $n for backends that need it.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d Dialect) isUniqueViolation(err error) bool {
	return d.hasCode(err, "23505", "unique constraint failed")
}

func (d Dialect) isForeignKeyViolation(err error) bool {
	return d.hasCode(err, "23503", "foreign key constraint failed")
}

func (d Dialect) hasCode(err error, pgCode, sqliteText string) bool {
	if err == nil {
		return false
	}
	if d.numbered {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgCode
	}
	return strings.Contains(strings.ToLower(err.Error()), sqliteText)
}
