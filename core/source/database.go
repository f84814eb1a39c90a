package source

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"koala-diff/core/row"
)

// DBSource streams the rows of a database table through gorm's raw
// *sql.Rows interface. Column kinds are mapped from the driver's
// reported database type names.
type DBSource struct {
	rows   *sql.Rows
	schema *row.Schema
	dest   []any
}

// OpenTable starts a streaming read over the named table.
func OpenTable(db *gorm.DB, table string) (*DBSource, error) {
	rows, err := db.Table(table).Rows()
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	cols := make([]row.Column, len(types))
	for i, ct := range types {
		cols[i] = row.Column{Name: ct.Name(), Kind: sqlKind(ct.DatabaseTypeName())}
	}
	schema, err := row.NewSchema(cols...)
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	return &DBSource{rows: rows, schema: schema, dest: make([]any, len(cols))}, nil
}

// Schema returns the schema mapped from the table's column types.
func (s *DBSource) Schema() *row.Schema { return s.schema }

// Next returns the next row, or io.EOF when the result set is exhausted.
func (s *DBSource) Next() (row.Row, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	ptrs := make([]any, len(s.dest))
	for i := range s.dest {
		s.dest[i] = nil
		ptrs[i] = &s.dest[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	r := make(row.Row, len(s.dest))
	for i, v := range s.dest {
		r[i] = sqlValue(v, s.schema.Columns()[i].Kind)
	}
	return r, nil
}

// Close releases the underlying result set.
func (s *DBSource) Close() error { return s.rows.Close() }

func sqlKind(dbType string) row.Kind {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT":
		return row.KindInt
	case "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC", "REAL":
		return row.KindFloat
	case "BOOL", "BOOLEAN", "BIT":
		return row.KindBool
	case "DATE", "DATETIME", "TIMESTAMP":
		return row.KindTimestamp
	default:
		return row.KindString
	}
}

// sqlValue converts a driver value to a row.Value. MySQL hands many
// columns back as []byte, so those are re-parsed by the declared kind.
func sqlValue(v any, kind row.Kind) row.Value {
	switch x := v.(type) {
	case nil:
		return row.Null()
	case int64:
		return row.Int(x)
	case float64:
		return row.Float(x)
	case bool:
		return row.Bool(x)
	case time.Time:
		return row.Timestamp(x)
	case string:
		return bytesValue(x, kind)
	case []byte:
		return bytesValue(string(x), kind)
	default:
		return row.Str(fmt.Sprint(x))
	}
}

func bytesValue(s string, kind row.Kind) row.Value {
	switch kind {
	case row.KindInt:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return row.Int(i)
		}
	case row.KindFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return row.Float(f)
		}
	case row.KindBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return row.Bool(b)
		}
	case row.KindTimestamp:
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return row.Timestamp(t)
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return row.Timestamp(t)
		}
	}
	return row.Str(s)
}
