/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package carpet

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MakeMSSQLDSN makes DSN for opening MSSQL database.
func MakeMSSQLDSN(cfg *MSSQLConfig) string {
	const dbKey = "database"
	u := serverURL("sqlserver", &cfg.ServerConfig)
	u.RawQuery = url.Values{dbKey: []string{cfg.Database}}.Encode()
	return withAdditionalParameters(u, cfg.AdditionalParameters, map[string]struct{}{dbKey: {}})
}

// MakeMySQLDSN makes DSN for opening MySQL database.
// Multi-statements are enabled since change set scripts may contain several statements per fragment
// when a custom delimiter is used.
func MakeMySQLDSN(cfg *MySQLConfig) string {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	c.MultiStatements = true
	c.Params = map[string]string{"autocommit": "false"}
	return c.FormatDSN()
}

// MakePostgresDSN makes DSN for opening Postgres database.
func MakePostgresDSN(cfg *PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = PostgresDefaultSSLMode
	}
	u := serverURL("postgres", &cfg.ServerConfig)
	u.Path = cfg.Database
	u.RawQuery = "sslmode=" + url.QueryEscape(string(sslMode))

	ignore := map[string]struct{}{"sslmode": {}}
	if cfg.SearchPath != "" {
		u.RawQuery += "&search_path=" + url.QueryEscape(cfg.SearchPath)
		ignore["search_path"] = struct{}{}
	}
	return withAdditionalParameters(u, cfg.AdditionalParameters, ignore)
}

// MakeSQLiteDSN makes DSN for opening SQLite database.
func MakeSQLiteDSN(cfg *SQLiteConfig) string {
	return cfg.Path
}

func serverURL(scheme string, cfg *ServerConfig) url.URL {
	return url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// withAdditionalParameters appends params that are not in keysToIgnore to the query of u.
// Parameters are sorted to make DSN deterministic.
func withAdditionalParameters(u url.URL, params map[string]string, keysToIgnore map[string]struct{}) string {
	if len(params) == 0 {
		return u.String()
	}
	queryParts := make([]string, 0, len(params))
	for k, v := range params {
		if _, ok := keysToIgnore[k]; ok {
			continue
		}
		queryParts = append(queryParts, k+"="+url.QueryEscape(v))
	}
	if len(queryParts) == 0 {
		return u.String()
	}
	sort.Strings(queryParts)
	u.RawQuery += "&" + strings.Join(queryParts, "&")
	return u.String()
}
