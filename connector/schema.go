/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package connector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"     // register goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"  // register goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"   // register goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver" // register goqu dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/acronis/go-carpet"
)

// DefaultTableName is the default name of the tracking table.
const DefaultTableName = "change_set"

// Tracking table columns.
const (
	VersionColumn = "version"
	TaskColumn    = "task"
	AppliedColumn = "applied"
	HashColumn    = "hash"
)

// The tracking table name is never quoted, so every statement resolves it with the database's
// own case folding.
var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// schema builds the dialect-specific SQL used to inspect and maintain the tracking table.
type schema struct {
	dialect   carpet.Dialect
	qb        goqu.DialectWrapper
	tableName string
	table     exp.LiteralExpression
}

func newSchema(dialect carpet.Dialect, tableName string) (*schema, error) {
	var goquDialect string
	switch dialect {
	case carpet.DialectSQLite:
		goquDialect = "sqlite3"
	case carpet.DialectMySQL:
		goquDialect = "mysql"
	case carpet.DialectPostgres, carpet.DialectPgx:
		goquDialect = "postgres"
	case carpet.DialectMSSQL:
		goquDialect = "sqlserver"
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if tableName == "" {
		tableName = DefaultTableName
	}
	if !tableNameRegexp.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}
	return &schema{dialect: dialect, qb: goqu.Dialect(goquDialect), tableName: tableName, table: goqu.L(tableName)}, nil
}

// createTableSQL returns the DDL of the tracking table without the hash column,
// the column is added by addHashColumnSQL like for tables created by older versions.
func (s *schema) createTableSQL() string {
	return fmt.Sprintf(`CREATE TABLE %s (
			%s VARCHAR(255),
			%s VARCHAR(255),
			%s DATE
		)`, s.tableName, VersionColumn, TaskColumn, AppliedColumn)
}

func (s *schema) addHashColumnSQL() string {
	if s.dialect == carpet.DialectMSSQL {
		// MSSQL doesn't accept the COLUMN keyword in ADD clause.
		return fmt.Sprintf("ALTER TABLE %s ADD %s VARCHAR(64)", s.tableName, HashColumn)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s VARCHAR(64)", s.tableName, HashColumn)
}

// tableExistsSQL returns a query that selects the number of tables with the tracking table name.
func (s *schema) tableExistsSQL() (string, []interface{}, error) {
	switch s.dialect {
	case carpet.DialectSQLite:
		return s.qb.From("sqlite_master").
			Select(goqu.COUNT(goqu.Star())).
			Where(goqu.C("type").Eq("table"), goqu.L("LOWER(name)").Eq(strings.ToLower(s.tableName))).
			Prepared(true).ToSQL()
	default:
		return s.qb.From(goqu.S("information_schema").Table("tables")).
			Select(goqu.COUNT(goqu.Star())).
			Where(s.currentSchemaCond(), goqu.L("LOWER(table_name)").Eq(strings.ToLower(s.tableName))).
			Prepared(true).ToSQL()
	}
}

// columnExistsSQL returns a query that selects the number of columns named column in the tracking table.
func (s *schema) columnExistsSQL(column string) (string, []interface{}, error) {
	switch s.dialect {
	case carpet.DialectSQLite:
		return s.qb.From(goqu.Func("pragma_table_info", s.tableName)).
			Select(goqu.COUNT(goqu.Star())).
			Where(goqu.C("name").Eq(column)).
			Prepared(true).ToSQL()
	default:
		return s.qb.From(goqu.S("information_schema").Table("columns")).
			Select(goqu.COUNT(goqu.Star())).
			Where(
				s.currentSchemaCond(),
				goqu.L("LOWER(table_name)").Eq(strings.ToLower(s.tableName)),
				goqu.L("LOWER(column_name)").Eq(strings.ToLower(column)),
			).
			Prepared(true).ToSQL()
	}
}

func (s *schema) currentSchemaCond() exp.Expression {
	switch s.dialect {
	case carpet.DialectMySQL:
		return goqu.L("table_schema = DATABASE()")
	case carpet.DialectMSSQL:
		return goqu.L("table_schema = SCHEMA_NAME()")
	default:
		return goqu.L("table_schema = current_schema()")
	}
}

func (s *schema) countVersionSQL(version string) (string, []interface{}, error) {
	return s.qb.From(s.table).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C(VersionColumn).Eq(version)).
		Prepared(true).ToSQL()
}

func (s *schema) countTaskSQL(version, taskName string) (string, []interface{}, error) {
	return s.qb.From(s.table).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C(VersionColumn).Eq(version), goqu.C(TaskColumn).Eq(taskName)).
		Prepared(true).ToSQL()
}

func (s *schema) selectHashSQL(version, taskName string) (string, []interface{}, error) {
	return s.qb.From(s.table).
		Select(goqu.C(HashColumn)).
		Where(goqu.C(VersionColumn).Eq(version), goqu.C(TaskColumn).Eq(taskName)).
		Prepared(true).ToSQL()
}

func (s *schema) updateHashSQL(version, taskName, hash string) (string, []interface{}, error) {
	return s.qb.Update(s.table).
		Set(goqu.Record{HashColumn: hash}).
		Where(goqu.C(VersionColumn).Eq(version), goqu.C(TaskColumn).Eq(taskName), goqu.C(HashColumn).IsNull()).
		Prepared(true).ToSQL()
}

func (s *schema) insertTaskSQL(version, taskName, hash string, applied interface{}) (string, []interface{}, error) {
	return s.qb.Insert(s.table).
		Rows(goqu.Record{
			VersionColumn: version,
			TaskColumn:    taskName,
			AppliedColumn: applied,
			HashColumn:    hash,
		}).
		Prepared(true).ToSQL()
}
