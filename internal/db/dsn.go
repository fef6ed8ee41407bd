package db

import (
	"net/url"
	"strings"
)

// Redact returns dsn with any password replaced, for logging. SQLite paths
// are returned as is.
func Redact(dsn string) string {
	if !strings.Contains(dsn, "://") || strings.HasPrefix(dsn, "sqlite://") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid dsn>"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}

// IsSQL reports whether dsn names a SQL cache backend rather than a
// directory: a postgres or sqlite URL, or a path ending in .db or .sqlite.
func IsSQL(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	for _, p := range []string{"postgres://", "postgresql://", "sqlite://"} {
		if strings.HasPrefix(dsn, p) {
			return true
		}
	}
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite")
}
