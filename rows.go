package libmysql

import (
	"strconv"
	"unsafe"

	"github.com/shopspring/decimal"
)

// Result is a result set produced by Conn.Query. Buffered results hold all
// rows client-side; unbuffered results stream from the server and must be
// drained or freed before the connection runs another command.
type Result struct {
	conn     *Conn
	res      uintptr
	buffered bool
	fields   []Field
}

// Fields returns the column descriptions.
func (r *Result) Fields() []Field {
	return r.fields
}

// NumFields returns the column count.
func (r *Result) NumFields() int {
	return len(r.fields)
}

// NumRows returns the row count of a buffered result. For unbuffered
// results the count is only accurate once every row has been fetched.
func (r *Result) NumRows() uint64 {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	if r.res == 0 {
		return 0
	}
	return mysqlNumRows(r.res)
}

// FetchRow returns the next row with cells converted to host values, or
// ErrExhausted once the result set is drained. Raw mode skips conversion
// and returns []byte cells (string cells with RawAsString).
func (r *Result) FetchRow() ([]interface{}, error) {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	if r.res == 0 {
		return nil, errNoResult
	}

	rowPtr := mysqlFetchRow(r.res)
	if rowPtr == 0 {
		// NULL either means exhaustion or, for unbuffered results, a
		// mid-stream server error. The diagnostics disambiguate.
		if r.conn.connected && mysqlErrno(r.conn.mysql) != 0 {
			return nil, sessionError(r.conn.mysql, "row fetch failed")
		}
		return nil, ErrExhausted
	}

	n := len(r.fields)
	cells := unsafe.Slice((*uintptr)(unsafe.Pointer(rowPtr)), n)
	lengths := unsafe.Slice((*ulong)(unsafe.Pointer(mysqlFetchLengths(r.res))), n)

	cfg := &r.conn.cfg
	row := make([]interface{}, n)
	for i := 0; i < n; i++ {
		if cells[i] == 0 {
			row[i] = nil
			continue
		}
		raw := goBytes(cells[i], int(lengths[i]))
		if cfg.Raw {
			if cfg.RawAsString {
				row[i] = string(raw)
			} else {
				row[i] = append([]byte(nil), raw...)
			}
			continue
		}
		value, err := convertTextCell(&r.fields[i], raw, cfg.Charset, cfg.UseUnicode)
		if err != nil {
			return nil, err
		}
		row[i] = value
	}
	return row, nil
}

// FetchAll drains the result set.
func (r *Result) FetchAll() ([][]interface{}, error) {
	var rows [][]interface{}
	for {
		row, err := r.FetchRow()
		if err == ErrExhausted {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Free releases the result set. Unbuffered results are drained first so the
// connection stays usable.
func (r *Result) Free() {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	if r.res == 0 {
		return
	}
	if r.conn.active == r {
		r.conn.freeActiveLocked()
		return
	}
	mysqlFreeResult(r.res)
	r.res = 0
}

// convertTextCell converts one non-NULL text protocol cell into its host
// value based on the column's wire type and flags.
func convertTextCell(f *Field, raw []byte, charset string, useUnicode bool) (interface{}, error) {
	switch f.Type {
	case TypeNull:
		return nil, nil

	case TypeTiny, TypeShort, TypeLong, TypeLongLong, TypeInt24, TypeYear:
		s := string(raw)
		if f.Flags&ZerofillFlag != 0 {
			// Zerofill pads with leading zeros that strconv would treat
			// as base prefixes; strip them before parsing.
			for len(s) > 1 && s[0] == '0' {
				s = s[1:]
			}
		}
		if f.Flags&UnsignedFlag != 0 {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, &ConversionError{Value: string(raw), Type: f.Type, Msg: "invalid integer " + strconv.Quote(string(raw))}
			}
			return v, nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, &ConversionError{Value: string(raw), Type: f.Type, Msg: "invalid integer " + strconv.Quote(string(raw))}
		}
		return v, nil

	case TypeFloat, TypeDouble:
		v, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			// Garbage in a float column degrades to NULL rather than
			// failing the row.
			return nil, nil
		}
		return v, nil

	case TypeDecimal, TypeNewDecimal:
		v, err := decimal.NewFromString(string(raw))
		if err != nil {
			return nil, &ConversionError{Value: string(raw), Type: f.Type, Msg: "invalid decimal " + strconv.Quote(string(raw))}
		}
		return v, nil

	case TypeDate, TypeNewDate:
		d, ok, err := ParseDate(raw)
		if err != nil || !ok {
			return nil, err
		}
		return d.Time(), nil

	case TypeDatetime, TypeTimestamp:
		t, ok := ParseDateTime(raw)
		if !ok {
			return nil, nil
		}
		return t, nil

	case TypeTime:
		d, ok := ParseTime(raw)
		if !ok {
			return nil, nil
		}
		return d, nil

	case TypeBit:
		return BitsToUint64(raw), nil

	case TypeTinyBlob, TypeMediumBlob, TypeLongBlob, TypeBlob:
		if f.Flags&BlobFlag != 0 && f.Flags&BinaryFlag != 0 {
			return append([]byte(nil), raw...), nil
		}
		return DecodeColumn(raw, f.Charsetnr, charset, useUnicode)

	case TypeGeometry:
		return append([]byte(nil), raw...), nil

	case TypeJSON:
		// JSON columns always report the binary collation id but carry
		// text; they decode whenever Unicode decoding is on.
		if !useUnicode {
			return append([]byte(nil), raw...), nil
		}
		s, err := DecodeText(raw, charset)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		value, err := DecodeColumn(raw, f.Charsetnr, charset, useUnicode)
		if err != nil {
			return nil, err
		}
		if f.Flags&SetFlag != 0 || f.Type == TypeSet {
			if s, ok := value.(string); ok {
				return splitSet(s), nil
			}
		}
		return value, nil
	}
}
