package diff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/klauspost/compress/s2"

	"koala-diff/core/row"
)

// Spill file layout: a sequence of blocks, each an s2-compressed batch of
// encoded rows framed as [uvarint compressed length][compressed bytes].
// The format is private to a single Compare invocation and carries no
// version header; files never outlive the run.

// encodeRow appends the binary encoding of a row to buf.
func encodeRow(buf []byte, r row.Row) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(r)))
	for _, v := range r {
		switch v.Kind() {
		case row.KindNull:
			buf = append(buf, tagNull)
		case row.KindBool:
			buf = append(buf, tagBool)
			if v.Boolean() {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case row.KindInt:
			buf = append(buf, tagInt)
			buf = binary.AppendVarint(buf, v.Int64())
		case row.KindFloat:
			buf = append(buf, tagFloat)
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Float64()))
		case row.KindString:
			buf = append(buf, tagString)
			buf = binary.AppendUvarint(buf, uint64(len(v.Text())))
			buf = append(buf, v.Text()...)
		case row.KindTimestamp:
			buf = append(buf, tagTimestamp)
			buf = binary.AppendVarint(buf, v.Time().UnixNano())
		}
	}
	return buf
}

// decodeRow reads one row from data, returning the remainder.
func decodeRow(data []byte) (row.Row, []byte, error) {
	n, sz := binary.Uvarint(data)
	if sz <= 0 {
		return nil, nil, fmt.Errorf("corrupt row header")
	}
	data = data[sz:]
	r := make(row.Row, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(data) == 0 {
			return nil, nil, io.ErrUnexpectedEOF
		}
		tag := data[0]
		data = data[1:]
		switch tag {
		case tagNull:
			r = append(r, row.Null())
		case tagBool:
			if len(data) < 1 {
				return nil, nil, io.ErrUnexpectedEOF
			}
			r = append(r, row.Bool(data[0] == 1))
			data = data[1:]
		case tagInt:
			v, sz := binary.Varint(data)
			if sz <= 0 {
				return nil, nil, fmt.Errorf("corrupt int value")
			}
			r = append(r, row.Int(v))
			data = data[sz:]
		case tagFloat:
			if len(data) < 8 {
				return nil, nil, io.ErrUnexpectedEOF
			}
			r = append(r, row.Float(math.Float64frombits(binary.LittleEndian.Uint64(data))))
			data = data[8:]
		case tagString:
			n, sz := binary.Uvarint(data)
			if sz <= 0 || uint64(len(data)-sz) < n {
				return nil, nil, fmt.Errorf("corrupt string value")
			}
			r = append(r, row.Str(string(data[sz:sz+int(n)])))
			data = data[sz+int(n):]
		case tagTimestamp:
			v, sz := binary.Varint(data)
			if sz <= 0 {
				return nil, nil, fmt.Errorf("corrupt timestamp value")
			}
			r = append(r, row.Timestamp(time.Unix(0, v).UTC()))
			data = data[sz:]
		default:
			return nil, nil, fmt.Errorf("unknown value tag 0x%02x", tag)
		}
	}
	return r, data, nil
}

// spillFile is an append-only on-disk row log for one partition side.
type spillFile struct {
	partition int
	path      string
	f         *os.File
	scratch   []byte
}

func newSpillFile(dir string, partition int, side Side) (*spillFile, error) {
	f, err := os.CreateTemp(dir, fmt.Sprintf("p%04d_%s_*.spill", partition, side))
	if err != nil {
		return nil, &SpillError{Partition: partition, Op: "create", Err: err}
	}
	return &spillFile{partition: partition, path: f.Name(), f: f}, nil
}

// writeBlock encodes and appends a batch of rows as one compressed block.
func (s *spillFile) writeBlock(rows []row.Row) error {
	raw := s.scratch[:0]
	for _, r := range rows {
		raw = encodeRow(raw, r)
	}
	s.scratch = raw
	compressed := s2.Encode(nil, raw)
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(compressed)))
	if _, err := s.f.Write(hdr[:n]); err != nil {
		return &SpillError{Partition: s.partition, Op: "write", Err: err}
	}
	if _, err := s.f.Write(compressed); err != nil {
		return &SpillError{Partition: s.partition, Op: "write", Err: err}
	}
	return nil
}

// iterate replays every spilled row in write order. The callback must not
// retain the backing slice of string values beyond the call unless it owns
// them; decodeRow copies, so retained rows are safe.
func (s *spillFile) iterate(fn func(row.Row) error) error {
	if err := s.f.Sync(); err != nil {
		return &SpillError{Partition: s.partition, Op: "write", Err: err}
	}
	r, err := os.Open(s.path)
	if err != nil {
		return &SpillError{Partition: s.partition, Op: "read", Err: err}
	}
	defer r.Close()

	br := newByteReader(r)
	for {
		blockLen, err := binary.ReadUvarint(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &SpillError{Partition: s.partition, Op: "read", Err: err}
		}
		compressed := make([]byte, blockLen)
		if _, err := io.ReadFull(br, compressed); err != nil {
			return &SpillError{Partition: s.partition, Op: "read", Err: err}
		}
		raw, err := s2.Decode(nil, compressed)
		if err != nil {
			return &SpillError{Partition: s.partition, Op: "read", Err: err}
		}
		for len(raw) > 0 {
			var rw row.Row
			rw, raw, err = decodeRow(raw)
			if err != nil {
				return &SpillError{Partition: s.partition, Op: "read", Err: err}
			}
			if err := fn(rw); err != nil {
				return err
			}
		}
	}
}

// close removes the file. Safe to call more than once.
func (s *spillFile) close() error {
	if s.f == nil {
		return nil
	}
	_ = s.f.Close()
	s.f = nil
	if err := os.Remove(s.path); err != nil {
		return &SpillError{Partition: s.partition, Op: "remove", Err: err}
	}
	return nil
}

// byteReader adapts an io.Reader for binary.ReadUvarint with buffering.
type byteReader struct {
	r   io.Reader
	buf []byte
	pos int
	n   int
}

func newByteReader(r io.Reader) *byteReader {
	return &byteReader{r: r, buf: make([]byte, 64<<10)}
}

func (b *byteReader) ReadByte() (byte, error) {
	if b.pos >= b.n {
		n, err := b.r.Read(b.buf)
		if n == 0 {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		b.pos, b.n = 0, n
	}
	c := b.buf[b.pos]
	b.pos++
	return c, nil
}

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos < b.n {
		n := copy(p, b.buf[b.pos:b.n])
		b.pos += n
		return n, nil
	}
	return b.r.Read(p)
}
