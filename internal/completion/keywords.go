package completion

// CommonKeywords are SQL keywords shared across all dialects.
var CommonKeywords = []string{
	"SELECT", "FROM", "WHERE", "JOIN", "LEFT", "RIGHT", "INNER", "OUTER",
	"FULL", "CROSS", "ON", "AND", "OR", "NOT", "IN", "EXISTS", "BETWEEN",
	"LIKE", "ILIKE", "IS", "NULL", "AS", "CASE", "WHEN", "THEN", "ELSE",
	"END", "INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "CREATE",
	"ALTER", "DROP", "TABLE", "VIEW", "INDEX", "UNIQUE", "PRIMARY", "KEY",
	"FOREIGN", "REFERENCES", "CONSTRAINT", "DEFAULT", "CHECK", "CASCADE",
	"RESTRICT", "GROUP", "BY", "ORDER", "ASC", "DESC", "HAVING", "LIMIT",
	"OFFSET", "DISTINCT", "ALL", "ANY", "SOME", "UNION", "INTERSECT",
	"EXCEPT", "WITH", "RECURSIVE", "RETURNING", "BEGIN", "COMMIT",
	"ROLLBACK", "TRANSACTION", "GRANT", "REVOKE", "EXPLAIN", "ANALYZE",
	"VACUUM", "TRUNCATE", "IF", "REPLACE", "TEMPORARY", "TEMP",
}

// CommonFunctions are SQL functions shared across all dialects.
var CommonFunctions = []string{
	"COUNT", "SUM", "AVG", "MIN", "MAX", "COALESCE", "NULLIF", "CAST",
	"CASE", "LOWER", "UPPER", "TRIM", "LTRIM", "RTRIM", "LENGTH",
	"SUBSTRING", "REPLACE", "CONCAT", "ABS", "CEIL", "FLOOR", "ROUND",
	"NOW", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "EXTRACT",
	"ROW_NUMBER", "RANK", "DENSE_RANK", "LAG", "LEAD", "FIRST_VALUE",
	"LAST_VALUE", "NTILE",
}

// PostgresKeywords are additional keywords specific to PostgreSQL.
var PostgresKeywords = []string{
	"SERIAL", "BIGSERIAL", "SIMILAR", "LATERAL", "MATERIALIZED",
	"CONCURRENTLY", "TABLESPACE", "SCHEMA", "EXTENSION", "SEQUENCE",
	"OWNED", "NOTIFY", "LISTEN", "PERFORM", "RAISE", "COPY",
}

// PostgresFunctions are additional functions specific to PostgreSQL.
var PostgresFunctions = []string{
	"GENERATE_SERIES", "UNNEST", "ARRAY_LENGTH", "ARRAY_AGG", "STRING_AGG",
	"JSON_AGG", "JSONB_SET", "JSONB_EACH", "REGEXP_MATCHES", "SPLIT_PART",
	"DATE_TRUNC", "DATE_PART", "AGE", "TO_CHAR", "TO_DATE", "TO_NUMBER",
	"PERCENTILE_CONT", "BOOL_AND", "BOOL_OR", "EVERY",
}

// MySQLKeywords are additional keywords specific to MySQL.
var MySQLKeywords = []string{
	"AUTO_INCREMENT", "ENGINE", "CHARSET", "COLLATE", "SHOW", "DESCRIBE",
	"USE", "DATABASES", "TABLES", "COLUMNS", "STATUS", "VARIABLES",
	"PROCESSLIST", "BINARY", "UNSIGNED", "ZEROFILL", "ENUM", "MEDIUMTEXT",
	"LONGTEXT", "TINYINT", "MEDIUMINT",
}

// MySQLFunctions are additional functions specific to MySQL.
var MySQLFunctions = []string{
	"IFNULL", "GROUP_CONCAT", "CONCAT_WS", "DATE_FORMAT", "STR_TO_DATE",
	"UNIX_TIMESTAMP", "FROM_UNIXTIME", "LAST_INSERT_ID", "DATABASE",
	"VERSION", "DATEDIFF", "DATE_ADD", "DATE_SUB",
}

// SQLiteKeywords are additional keywords specific to SQLite.
var SQLiteKeywords = []string{
	"PRAGMA", "AUTOINCREMENT", "GLOB", "ATTACH", "DETACH", "REINDEX",
	"INDEXED", "WITHOUT", "ROWID", "STRICT",
}

// SQLiteFunctions are additional functions specific to SQLite.
var SQLiteFunctions = []string{
	"IIF", "TYPEOF", "INSTR", "HEX", "QUOTE", "RANDOM", "RANDOMBLOB",
	"TOTAL", "GROUP_CONCAT", "STRFTIME", "JULIANDAY", "DATETIME", "DATE",
	"TIME", "CHANGES", "LAST_INSERT_ROWID",
}

// DuckDBKeywords are additional keywords specific to DuckDB.
var DuckDBKeywords = []string{
	"PIVOT", "UNPIVOT", "SAMPLE", "USING", "QUALIFY", "COLUMNS", "STRUCT",
	"LIST", "MAP", "HUGEINT", "UBIGINT", "UINTEGER",
}

// DuckDBFunctions are additional functions specific to DuckDB.
var DuckDBFunctions = []string{
	"READ_CSV_AUTO", "READ_PARQUET", "READ_JSON_AUTO", "UNNEST",
	"STRUCT_PACK", "LIST_VALUE", "LIST_TRANSFORM", "REGEXP_EXTRACT",
	"STRFTIME", "EPOCH_MS", "HISTOGRAM", "ARRAY_AGG", "STRING_AGG",
	"DATE_TRUNC",
}

// KeywordsForDialect returns CommonKeywords combined with dialect-specific
// keywords. The result is a fresh slice with duplicates removed.
func KeywordsForDialect(dialect string) []string {
	switch dialect {
	case "postgres", "postgresql":
		return merge(CommonKeywords, PostgresKeywords)
	case "mysql":
		return merge(CommonKeywords, MySQLKeywords)
	case "sqlite":
		return merge(CommonKeywords, SQLiteKeywords)
	case "duckdb":
		return merge(CommonKeywords, DuckDBKeywords)
	default:
		return merge(CommonKeywords, nil)
	}
}

// FunctionsForDialect returns CommonFunctions combined with dialect-specific
// functions. The result is a fresh slice with duplicates removed.
func FunctionsForDialect(dialect string) []string {
	switch dialect {
	case "postgres", "postgresql":
		return merge(CommonFunctions, PostgresFunctions)
	case "mysql":
		return merge(CommonFunctions, MySQLFunctions)
	case "sqlite":
		return merge(CommonFunctions, SQLiteFunctions)
	case "duckdb":
		return merge(CommonFunctions, DuckDBFunctions)
	default:
		return merge(CommonFunctions, nil)
	}
}

// merge concatenates base and extra, dropping duplicates while keeping order.
func merge(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	result := make([]string, 0, len(base)+len(extra))
	for _, lists := range [][]string{base, extra} {
		for _, s := range lists {
			if seen[s] {
				continue
			}
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
