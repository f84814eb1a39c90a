package source

import (
	"testing"
	"time"

	"koala-diff/core/row"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestOpenTable(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("name").OfType("VARCHAR", ""),
		sqlmock.NewColumn("price").OfType("DECIMAL", []byte(nil)),
		sqlmock.NewColumn("created_at").OfType("DATETIME", []byte(nil)),
	).
		AddRow(int64(1), "chair", []byte("10.50"), []byte("2026-04-01 10:00:00")).
		AddRow(int64(2), nil, []byte("99"), nil)
	mock.ExpectQuery("SELECT \\* FROM `items`").WillReturnRows(rows)

	s, err := OpenTable(db, "items")
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, []string{"id", "name", "price", "created_at"}, s.Schema().Names())
	assert.Equal(t, row.KindInt, s.Schema().Column(0).Kind)
	assert.Equal(t, row.KindString, s.Schema().Column(1).Kind)
	assert.Equal(t, row.KindFloat, s.Schema().Column(2).Kind)
	assert.Equal(t, row.KindTimestamp, s.Schema().Column(3).Kind)

	out := drain(t, s)
	require.Len(t, out, 2)
	assert.True(t, out[0][0].EqualKey(row.Int(1)))
	assert.True(t, out[0][2].Equal(row.Float(10.5), 0))
	want := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, out[0][3].EqualKey(row.Timestamp(want)))
	assert.True(t, out[1][1].IsNull())
	assert.True(t, out[1][3].IsNull())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenTableQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `missing`").WillReturnError(assert.AnError)

	_, err := OpenTable(db, "missing")
	assert.ErrorContains(t, err, "table missing")
}

func TestSQLKind(t *testing.T) {
	cases := map[string]row.Kind{
		"INT":      row.KindInt,
		"bigint":   row.KindInt,
		"DOUBLE":   row.KindFloat,
		"NUMERIC":  row.KindFloat,
		"BOOLEAN":  row.KindBool,
		"DATETIME": row.KindTimestamp,
		"VARCHAR":  row.KindString,
		"JSON":     row.KindString,
	}
	for dbType, want := range cases {
		assert.Equal(t, want, sqlKind(dbType), dbType)
	}
}

func TestBytesValue(t *testing.T) {
	assert.True(t, bytesValue("42", row.KindInt).EqualKey(row.Int(42)))
	assert.True(t, bytesValue("2.5", row.KindFloat).Equal(row.Float(2.5), 0))
	assert.True(t, bytesValue("1", row.KindBool).EqualKey(row.Bool(true)))

	ts := bytesValue("2026-04-01T10:00:00Z", row.KindTimestamp)
	assert.Equal(t, row.KindTimestamp, ts.Kind())

	// unparseable text degrades to a string rather than an error
	assert.Equal(t, row.KindString, bytesValue("n/a", row.KindInt).Kind())
}
