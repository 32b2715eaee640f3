// internal/config/database.go
package config

import (
	"net"
	"strings"
)

// DSN is the libpq keyword/value connection string. Values with spaces or
// quotes are quoted the way libpq expects.
func (d *DatabaseConfig) DSN() string {
	pairs := []struct{ key, value string }{
		{"host", d.Host},
		{"port", d.Port},
		{"user", d.User},
		{"password", d.Password},
		{"dbname", d.Database},
		{"sslmode", d.SSLMode},
		{"TimeZone", "UTC"},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// SQLiteDSN is the database file with foreign keys enforced.
func (d *DatabaseConfig) SQLiteDSN() string {
	if strings.Contains(d.Database, "?") {
		return d.Database
	}
	return d.Database + "?_pragma=foreign_keys(1)"
}

// Enabled reports whether Redis is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}
