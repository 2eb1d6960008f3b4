package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PostgresConnectionString builds a keyword/value DSN for pgx from the
// individual postgres settings.
func (c *Config) PostgresConnectionString() string {
	parts := []string{
		"host=" + quoteDSNValue(c.PostgresHost),
		"port=" + strconv.Itoa(c.PostgresPort),
		"user=" + quoteDSNValue(c.PostgresUser),
		"dbname=" + quoteDSNValue(c.PostgresDB),
		"sslmode=" + quoteDSNValue(c.PostgresSSLMode),
	}
	if c.PostgresPassword != "" {
		parts = append(parts, "password="+quoteDSNValue(c.PostgresPassword))
	}
	return strings.Join(parts, " ")
}

// PostgresURL builds a postgres:// URL, used by the migration runner.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDB,
	}
	if c.PostgresPassword != "" {
		u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
	} else {
		u.User = url.User(c.PostgresUser)
	}
	q := url.Values{}
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// quoteDSNValue quotes a DSN value when it contains characters that would
// break keyword/value parsing.
func quoteDSNValue(s string) string {
	if s == "" || strings.ContainsAny(s, " '\\") {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `'`, `\'`)
		return "'" + escaped + "'"
	}
	return s
}

// parseDatabaseURL overrides the postgres fields from a postgres:// URL,
// the form most hosting platforms hand out.
func parseDatabaseURL(cfg *Config, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		cfg.PostgresHost = host
	}
	if port := u.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", port, err)
		}
		cfg.PostgresPort = p
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			cfg.PostgresUser = name
		}
		if pw, ok := u.User.Password(); ok {
			cfg.PostgresPassword = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		cfg.PostgresDB = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		cfg.PostgresSSLMode = mode
	}
	return nil
}
