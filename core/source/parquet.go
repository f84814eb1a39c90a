package source

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"koala-diff/core/row"
)

// ParquetSource streams a Parquet file through the Arrow record reader in
// bounded batches.
type ParquetSource struct {
	pf     *file.Reader
	rr     pqarrow.RecordReader
	schema *row.Schema
	rec    arrow.Record
	cursor int
}

// OpenParquet opens a Parquet file for streaming.
func OpenParquet(path string) (*ParquetSource, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 4096}, memory.DefaultAllocator)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	arrowSchema, err := reader.Schema()
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	cols := make([]row.Column, arrowSchema.NumFields())
	for i, f := range arrowSchema.Fields() {
		cols[i] = row.Column{Name: f.Name, Kind: arrowKind(f.Type)}
	}
	schema, err := row.NewSchema(cols...)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	rr, err := reader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	return &ParquetSource{pf: pf, rr: rr, schema: schema}, nil
}

// Schema returns the schema mapped from the Arrow schema.
func (s *ParquetSource) Schema() *row.Schema { return s.schema }

// Next returns the next row, or io.EOF when the file is exhausted.
func (s *ParquetSource) Next() (row.Row, error) {
	for s.rec == nil || s.cursor >= int(s.rec.NumRows()) {
		if !s.rr.Next() {
			if err := s.rr.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return nil, io.EOF
		}
		s.rec = s.rr.Record()
		s.cursor = 0
	}
	r := make(row.Row, s.schema.Len())
	for i := 0; i < len(r); i++ {
		r[i] = arrowValue(s.rec.Column(i), s.cursor)
	}
	s.cursor++
	return r, nil
}

// Close releases the record reader and the file.
func (s *ParquetSource) Close() error {
	s.rr.Release()
	return s.pf.Close()
}

func arrowKind(dt arrow.DataType) row.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return row.KindInt
	case arrow.FLOAT32, arrow.FLOAT64:
		return row.KindFloat
	case arrow.BOOL:
		return row.KindBool
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY:
		return row.KindString
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return row.KindTimestamp
	default:
		return row.KindString
	}
}

func arrowValue(col arrow.Array, i int) row.Value {
	if col.IsNull(i) {
		return row.Null()
	}
	switch arr := col.(type) {
	case *array.Int8:
		return row.Int(int64(arr.Value(i)))
	case *array.Int16:
		return row.Int(int64(arr.Value(i)))
	case *array.Int32:
		return row.Int(int64(arr.Value(i)))
	case *array.Int64:
		return row.Int(arr.Value(i))
	case *array.Uint8:
		return row.Int(int64(arr.Value(i)))
	case *array.Uint16:
		return row.Int(int64(arr.Value(i)))
	case *array.Uint32:
		return row.Int(int64(arr.Value(i)))
	case *array.Uint64:
		return row.Int(int64(arr.Value(i)))
	case *array.Float32:
		return row.Float(float64(arr.Value(i)))
	case *array.Float64:
		return row.Float(arr.Value(i))
	case *array.Boolean:
		return row.Bool(arr.Value(i))
	case *array.String:
		return row.Str(arr.Value(i))
	case *array.LargeString:
		return row.Str(arr.Value(i))
	case *array.Binary:
		return row.Str(string(arr.Value(i)))
	case *array.Timestamp:
		tt := arr.DataType().(*arrow.TimestampType)
		return row.Timestamp(arr.Value(i).ToTime(tt.Unit))
	case *array.Date32:
		return row.Timestamp(arr.Value(i).ToTime())
	case *array.Date64:
		return row.Timestamp(arr.Value(i).ToTime())
	default:
		return row.Str(col.ValueStr(i))
	}
}
